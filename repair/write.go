package repair

import (
	"github.com/k11techlab/testsmith/internal/fileutil"
	"github.com/k11techlab/testsmith/types"
)

// WriteFixedCode writes code to path atomically. The parent directory is
// created first; if that fails nothing is written. Readers see either the old
// file or the complete new one.
func WriteFixedCode(path, code string) error {
	if err := fileutil.AtomicWriteString(path, code, 0o644); err != nil {
		return types.NewError(types.ErrToolchain, "failed to write fixed code").WithCause(err)
	}
	return nil
}
