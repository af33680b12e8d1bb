package download

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/robinradio/robincore/internal/errors"
)

// control carries the cooperative pause/cancel flags for one active
// transfer. The worker checks them between chunks; neither interrupts
// an in-flight read.
type control struct {
	paused    atomic.Bool
	cancelled atomic.Bool
}

// Sentinel results for a transfer stopped by its control flags.
var (
	errTransferPaused    = stderrors.New("transfer paused")
	errTransferCancelled = stderrors.New("transfer cancelled")
)

// transferrer performs the HTTP fetch of one song into the offline
// directory.
type transferrer struct {
	client        *http.Client
	dir           string
	progressEvery time.Duration
	logger        *zap.Logger
}

func newTransferrer(client *http.Client, dir string, progressEvery time.Duration, logger *zap.Logger) *transferrer {
	return &transferrer{
		client:        client,
		dir:           dir,
		progressEvery: progressEvery,
		logger:        logger,
	}
}

var nonWordChars = regexp.MustCompile(`[^a-z0-9_ ]+`)

// SanitizeFileName builds the offline file name for a song:
// "{song}_{artist}" lowercased, punctuation stripped, spaces turned
// into underscores, with an mp3 extension.
func SanitizeFileName(songName, artist string) string {
	base := strings.ToLower(songName + "_" + artist)
	base = nonWordChars.ReplaceAllString(base, "")
	base = strings.ReplaceAll(base, " ", "_")
	return base + ".mp3"
}

// run downloads url to the offline directory, reporting progress via
// onProgress at most once per progressEvery. It writes to a .part file
// and renames on success; a paused, cancelled, or failed transfer
// leaves nothing behind.
func (t *transferrer) run(ctx context.Context, url, songName, artist string, ctl *control, onProgress func(downloaded, total int64)) (string, int64, error) {
	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return "", 0, errors.NewCacheError("failed to create offline directory", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, errors.NewValidationError("invalid download url: " + err.Error())
	}

	resp, err := t.client.Do(req)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return "", 0, errors.NewTimeoutError("download timed out", err)
		}
		return "", 0, errors.NewNetworkError("download request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", 0, errors.NewNetworkError(
			fmt.Sprintf("download failed: %s", resp.Status), nil)
	}

	finalPath := filepath.Join(t.dir, SanitizeFileName(songName, artist))
	partPath := finalPath + ".part"

	file, err := os.Create(partPath)
	if err != nil {
		return "", 0, errors.NewCacheError("failed to create offline file", err)
	}

	total := resp.ContentLength
	written, err := t.copyWithControl(ctx, file, resp.Body, total, ctl, onProgress)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(partPath)
		switch {
		case stderrors.Is(err, errTransferPaused), stderrors.Is(err, errTransferCancelled):
			return "", 0, err
		case stderrors.Is(err, context.DeadlineExceeded):
			return "", 0, errors.NewTimeoutError("download timed out", err)
		default:
			return "", 0, errors.NewNetworkError("download interrupted", err)
		}
	}

	if err := os.Rename(partPath, finalPath); err != nil {
		os.Remove(partPath)
		return "", 0, errors.NewCacheError("failed to finalize offline file", err)
	}

	t.logger.Info("download complete",
		zap.String("song", songName),
		zap.String("path", finalPath),
		zap.String("size", humanize.Bytes(uint64(written))))
	return finalPath, written, nil
}

// copyWithControl is io.Copy with the control flags checked between
// chunks and progress reported on a throttle.
func (t *transferrer) copyWithControl(ctx context.Context, dst io.Writer, src io.Reader, total int64, ctl *control, onProgress func(downloaded, total int64)) (int64, error) {
	buf := make([]byte, 32*1024)
	var written int64
	lastReport := time.Now()

	for {
		if ctl.cancelled.Load() {
			return written, errTransferCancelled
		}
		if ctl.paused.Load() {
			return written, errTransferPaused
		}
		select {
		case <-ctx.Done():
			return written, ctx.Err()
		default:
		}

		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return written, werr
			}
			written += int64(n)
			if onProgress != nil && time.Since(lastReport) >= t.progressEvery {
				onProgress(written, total)
				lastReport = time.Now()
			}
		}
		if err == io.EOF {
			if onProgress != nil {
				onProgress(written, total)
			}
			return written, nil
		}
		if err != nil {
			return written, err
		}
	}
}
