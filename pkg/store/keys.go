package store

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Key layout. Each collection lives under its own prefix; the part
// before the last separator is the partition, the rest is the
// clustering key. Timestamps are stored inverted (math.MaxInt64 - ts)
// and zero-padded so plain ascending key order yields newest-first,
// with equal timestamps broken by id ascending.
//
//	user:<user_id>                                 user record
//	pair:<min_user>:<max_user>                     unordered pair -> conversation id
//	conv:<conv_id>:meta                            conversation record
//	conv:<conv_id>:msg:<inv_ts>-<msg_id>           message log
//	uconv:<user_id>:<inv_ts>-<conv_id>             conversation list projection
//	umsg:<user_id>:<conv_id>:<inv_ts>-<msg_id>     per-user message projection

func invTS(ts int64) string {
	return fmt.Sprintf("%020d", uint64(math.MaxInt64)-uint64(ts))
}

// revTS recovers the original timestamp from an inverted key segment.
func revTS(s string) (int64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return int64(uint64(math.MaxInt64) - n), nil
}

func userKey(userID string) string {
	return "user:" + userID
}

// pairKey canonicalizes the unordered pair so (A,B) and (B,A) map to
// the same key.
func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return "pair:" + a + ":" + b
}

func convMetaKey(convID string) string {
	return "conv:" + convID + ":meta"
}

func msgPrefix(convID string) string {
	return "conv:" + convID + ":msg:"
}

func msgKey(convID string, ts int64, msgID string) string {
	return msgPrefix(convID) + invTS(ts) + "-" + msgID
}

func userConvPrefix(userID string) string {
	return "uconv:" + userID + ":"
}

func userConvKey(userID string, ts int64, convID string) string {
	return userConvPrefix(userID) + invTS(ts) + "-" + convID
}

func userMsgPrefix(userID string) string {
	return "umsg:" + userID + ":"
}

func userMsgConvPrefix(userID, convID string) string {
	return userMsgPrefix(userID) + convID + ":"
}

func userMsgKey(userID, convID string, ts int64, msgID string) string {
	return userMsgConvPrefix(userID, convID) + invTS(ts) + "-" + msgID
}

// splitClustering splits an "<inv_ts>-<id>" clustering segment.
func splitClustering(seg string) (ts int64, id string, err error) {
	i := strings.Index(seg, "-")
	if i < 0 {
		return 0, "", fmt.Errorf("malformed clustering key: %q", seg)
	}
	ts, err = revTS(seg[:i])
	if err != nil {
		return 0, "", fmt.Errorf("malformed clustering key: %q", seg)
	}
	return ts, seg[i+1:], nil
}
