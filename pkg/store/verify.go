package store

import (
	"fmt"
	"io"

	"github.com/opencontainers/go-digest"
	"go.uber.org/zap"
)

// VerifyResult summarizes a full store integrity check.
type VerifyResult struct {
	Checked int
	Corrupt []digest.Digest
}

func (r *VerifyResult) Ok() bool {
	return len(r.Corrupt) == 0
}

// Verify re-hashes every blob and reports those whose content no longer
// matches the digest they are stored under.
func (s *Store) Verify() (*VerifyResult, error) {
	result := &VerifyResult{}
	err := s.Digests(func(dgst digest.Digest) error {
		r, err := s.Get(dgst)
		if err != nil {
			return err
		}
		defer r.Close()
		verifier := dgst.Verifier()
		if _, err := io.Copy(verifier, r); err != nil {
			return fmt.Errorf("read blob %s: %w", dgst, err)
		}
		result.Checked++
		if !verifier.Verified() {
			zap.L().Warn("corrupt blob", zap.String("digest", dgst.String()))
			result.Corrupt = append(result.Corrupt, dgst)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("store verified",
		zap.Int("checked", result.Checked),
		zap.Int("corrupt", len(result.Corrupt)),
	)
	return result, nil
}
