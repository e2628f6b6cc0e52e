package registry

import (
	"time"

	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"go.uber.org/zap"
)

const progressReportMinInterval = time.Second

// Push writes an image to its tag ref, reporting progress at debounced
// intervals through the global logger.
func (c *RegistryConfig) Push(tagRef name.Reference, image v1.Image) error {
	mediaType, err := image.MediaType()
	if err != nil {
		return err
	}
	zap.L().Info("pushing", zap.String("ref", tagRef.String()), zap.String("mediaType", string(mediaType)))

	progressChan := make(chan v1.Update, 200)
	errChan := make(chan error, 2)

	go func() {
		options := append(c.CraneOptions.Remote, remote.WithProgress(progressChan))
		errChan <- remote.Write(
			tagRef,
			image,
			options...,
		)
	}()

	logger := zap.L()
	nextProgress := time.Now().Add(progressReportMinInterval)

	for update := range progressChan {
		if update.Error != nil {
			logger.Error("push update", zap.Error(update.Error))
			errChan <- update.Error
			break
		}

		if update.Complete == update.Total {
			logger.Info("pushed", zap.Int64("completed", update.Complete), zap.Int64("total", update.Total))
		} else {
			if time.Now().After(nextProgress) {
				nextProgress = time.Now().Add(progressReportMinInterval)
				logger.Info("push", zap.Int64("completed", update.Complete), zap.Int64("total", update.Total))
			}
		}
	}

	return <-errChan
}
