package gift

import "strconv"

var (
	poolKey           = []byte("gift/pool")
	paramsKey         = []byte("gift/params")
	merkleRootKey     = []byte("gift/merkle_root")
	claimPrefix       = []byte("gift/claim/")
	releasePrefix     = []byte("gift/release/")
	referPrefix       = []byte("gift/refer/")
	referIndexPrefix  = []byte("gift/refer_idx/")
	stageStatsPrefix  = []byte("gift/stage_stats/")
	referIndexDivider = byte('/')
)

func claimKey(identity string) []byte {
	return appendKey(claimPrefix, identity)
}

func releaseKey(identity string) []byte {
	return appendKey(releasePrefix, identity)
}

func referKey(referred string) []byte {
	return appendKey(referPrefix, referred)
}

// referIndexKey builds the referrer -> referred secondary index entry:
// gift/refer_idx/<referrer>/<referred>.
func referIndexKey(referrer, referred string) []byte {
	buf := make([]byte, 0, len(referIndexPrefix)+len(referrer)+1+len(referred))
	buf = append(buf, referIndexPrefix...)
	buf = append(buf, referrer...)
	buf = append(buf, referIndexDivider)
	buf = append(buf, referred...)
	return buf
}

func referIndexScanPrefix(referrer string) []byte {
	buf := make([]byte, 0, len(referIndexPrefix)+len(referrer)+1)
	buf = append(buf, referIndexPrefix...)
	buf = append(buf, referrer...)
	buf = append(buf, referIndexDivider)
	return buf
}

func stageStatsKey(stage uint64) []byte {
	return appendKey(stageStatsPrefix, strconv.FormatUint(stage, 10))
}

func appendKey(prefix []byte, suffix string) []byte {
	buf := make([]byte, len(prefix)+len(suffix))
	copy(buf, prefix)
	copy(buf[len(prefix):], suffix)
	return buf
}
