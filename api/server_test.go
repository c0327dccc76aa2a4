package api

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"cybergift/crypto"
	"cybergift/native/gift"
	"cybergift/native/passport"
	"cybergift/storage"
)

type testOracle struct {
	owners map[string]string
	proofs map[string]string
}

func (o *testOracle) PassportSigned(nickname, address string) (bool, error) {
	return o.proofs[nickname] == address, nil
}

func (o *testOracle) AddressByNickname(nickname string) (string, error) {
	return o.owners[nickname], nil
}

type apiFixture struct {
	server   *httptest.Server
	engine   *gift.Engine
	oracle   *testOracle
	owner    string
	identity string
	amount   *big.Int
}

func newAccount(t *testing.T) string {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	return key.PubKey().Address().String()
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	db := storage.NewMemDB()
	oracle := &testOracle{owners: map[string]string{}, proofs: map[string]string{}}
	owner := newAccount(t)

	engine := gift.NewEngine()
	engine.SetState(gift.NewStore(db))
	engine.SetOracle(oracle)
	require.NoError(t, engine.Initialize(&gift.Params{
		Owner:           owner,
		Treasury:        newAccount(t),
		CommunityPool:   newAccount(t),
		Denom:           "boot",
		TargetClaim:     1,
		InitialBalance:  big.NewInt(10_000_000_000_000),
		CoefficientUp:   big.NewInt(20),
		CoefficientDown: big.NewInt(5),
		Coefficient:     big.NewInt(20),
	}))

	identity := "0x95ead3c504fab935fd7eadafb1e41c3c5e4cbbc5"
	amount := big.NewInt(10_000_000)
	leaf := gift.LeafHash(identity, amount)
	require.NoError(t, engine.RegisterMerkleRoot(owner, hex.EncodeToString(leaf[:])))

	handler := NewServer(engine, passport.NewRegistry(db), slog.Default()).Handler()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return &apiFixture{
		server:   server,
		engine:   engine,
		oracle:   oracle,
		owner:    owner,
		identity: identity,
		amount:   amount,
	}
}

func (fx *apiFixture) post(t *testing.T, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(fx.server.URL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp, decodeJSON(t, resp)
}

func (fx *apiFixture) get(t *testing.T, path string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Get(fx.server.URL + path)
	require.NoError(t, err)
	return resp, decodeJSON(t, resp)
}

func decodeJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]interface{}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&out); err != nil {
		return nil
	}
	return out
}

func (fx *apiFixture) registerPassport(t *testing.T, nickname string) string {
	t.Helper()
	account := newAccount(t)
	fx.oracle.owners[nickname] = account
	fx.oracle.proofs[nickname] = fx.identity
	return account
}

func TestHealthz(t *testing.T) {
	fx := newAPIFixture(t)
	resp, err := http.Get(fx.server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestClaimEndpoint(t *testing.T) {
	fx := newAPIFixture(t)
	beneficiary := fx.registerPassport(t, "alice")

	resp, body := fx.post(t, "/v1/gift/claim", claimRequest{
		Nickname:        "alice",
		ClaimingAddress: fx.identity,
		Amount:          fx.amount.String(),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "200000000", body["amount"])
	require.Equal(t, beneficiary, body["beneficiary"])

	// Replays conflict.
	resp, body = fx.post(t, "/v1/gift/claim", claimRequest{
		Nickname:        "alice",
		ClaimingAddress: fx.identity,
		Amount:          fx.amount.String(),
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Contains(t, body["error"], "claimed")
}

func TestClaimEndpointRejectsMalformedAmount(t *testing.T) {
	fx := newAPIFixture(t)
	fx.registerPassport(t, "alice")
	resp, _ := fx.post(t, "/v1/gift/claim", claimRequest{
		Nickname:        "alice",
		ClaimingAddress: fx.identity,
		Amount:          "lots",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReleaseEndpoint(t *testing.T) {
	fx := newAPIFixture(t)
	beneficiary := fx.registerPassport(t, "alice")
	resp, _ := fx.post(t, "/v1/gift/claim", claimRequest{
		Nickname:        "alice",
		ClaimingAddress: fx.identity,
		Amount:          fx.amount.String(),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := fx.post(t, "/v1/gift/release", releaseRequest{
		GiftAddress: fx.identity,
		Caller:      beneficiary,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "19990000", body["amount"])

	// The stage timer locks immediate follow-ups.
	resp, _ = fx.post(t, "/v1/gift/release", releaseRequest{
		GiftAddress: fx.identity,
		Caller:      beneficiary,
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	// Unknown identities are 404s.
	resp, _ = fx.post(t, "/v1/gift/release", releaseRequest{
		GiftAddress: "0x0000000000000000000000000000000000000000",
		Caller:      beneficiary,
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPoolAndRootEndpoints(t *testing.T) {
	fx := newAPIFixture(t)
	resp, body := fx.get(t, "/v1/gift/pool")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "10000000000000", body["currentBalance"])
	require.Equal(t, "20", body["coefficient"])

	resp, body = fx.get(t, "/v1/gift/root")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, body["root"])
}

func TestRegisterRootEndpointIsOwnerGated(t *testing.T) {
	fx := newAPIFixture(t)
	leaf := gift.LeafHash("other", big.NewInt(1))
	resp, _ := fx.post(t, "/v1/gift/root", registerRootRequest{
		Caller: newAccount(t),
		Root:   hex.EncodeToString(leaf[:]),
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = fx.post(t, "/v1/gift/root", registerRootRequest{
		Caller: fx.owner,
		Root:   hex.EncodeToString(leaf[:]),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestClaimStateEndpoint(t *testing.T) {
	fx := newAPIFixture(t)
	fx.registerPassport(t, "alice")

	resp, body := fx.get(t, "/v1/gift/claims/"+fx.identity)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, false, body["claimed"])

	fx.post(t, "/v1/gift/claim", claimRequest{
		Nickname:        "alice",
		ClaimingAddress: fx.identity,
		Amount:          fx.amount.String(),
	})

	resp, body = fx.get(t, "/v1/gift/claims/"+fx.identity)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["claimed"])
	require.Equal(t, "200000000", body["amount"])
}

func TestReferralEndpoints(t *testing.T) {
	fx := newAPIFixture(t)
	beneficiary := fx.registerPassport(t, "alice")
	referrer := newAccount(t)

	resp, _ := fx.post(t, "/v1/gift/claim", claimRequest{
		Nickname:        "alice",
		ClaimingAddress: fx.identity,
		Amount:          fx.amount.String(),
		Referral:        referrer,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := fx.get(t, "/v1/gift/referrals/"+beneficiary+"/chain")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	chain, ok := body["chain"].([]interface{})
	require.True(t, ok)
	require.Len(t, chain, 1)
	require.Equal(t, referrer, chain[0])

	resp, body = fx.get(t, "/v1/gift/referrals/"+referrer+"/referred")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	referred, ok := body["referred"].([]interface{})
	require.True(t, ok)
	require.Len(t, referred, 1)
}

func TestPassportEndpoints(t *testing.T) {
	fx := newAPIFixture(t)
	owner := newAccount(t)

	resp, body := fx.post(t, "/v1/passport/", passportCreateRequest{Nickname: "carol", Owner: owner})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "carol", body["Nickname"])

	resp, _ = fx.post(t, "/v1/passport/", passportCreateRequest{Nickname: "carol", Owner: owner})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = fx.get(t, "/v1/passport/carol")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, owner, body["Owner"])

	resp, _ = fx.get(t, "/v1/passport/nobody")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
