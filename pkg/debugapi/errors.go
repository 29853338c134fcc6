package debugapi

import "github.com/tauraamui/xerror"

const KindTuning = xerror.Kind("invalid_tuning")

func errInvalidTuning(msg string) error {
	return xerror.NewWithKind(KindTuning, msg)
}
