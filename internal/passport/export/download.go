package export

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"securitypassport/internal/passport/models"
	"securitypassport/pkg/platform/ziputil"
	"securitypassport/pkg/requestcontext"
)

// Failure reasons recorded for evidence that could not be archived.
const (
	ReasonMissingStorageKey  = "missing_storage_key"
	ReasonRetrievalURLFailed = "retrieval_url_failed"
	ReasonRequestFailed      = "request_failed"
	ReasonStreamFailed       = "stream_failed"
)

// Failure is one evidence file missing from an archive.
type Failure struct {
	EvidenceID string
	Filename   string
	Reason     string
}

// String renders the line written to evidence/_FAILED_DOWNLOADS.txt.
func (f Failure) String() string {
	if f.Filename == "" {
		return f.EvidenceID + " " + f.Reason
	}
	return f.EvidenceID + " " + f.Filename + " " + f.Reason
}

func httpStatusReason(status int) string {
	return fmt.Sprintf("http_%d", status)
}

func failureReport(failures []Failure) []byte {
	lines := make([]string, len(failures))
	for i, f := range failures {
		lines[i] = f.String()
	}
	return []byte(strings.Join(lines, "\n") + "\n")
}

type downloadResult struct {
	downloaded int
	failures   []Failure
}

// fetched is an opened evidence response, or the reason it could not be
// opened. release must be called exactly once. abort cancels the request
// and is armed by the writer while it streams the body.
type fetched struct {
	body    io.ReadCloser
	reason  string
	abort   context.CancelFunc
	release func()
}

// downloadEvidence writes each evidence file into zw in Pack order. A
// producer opens up to DownloadConcurrency responses ahead of the writer;
// the writer is the only goroutine touching zw and the result.
func (s *Service) downloadEvidence(ctx context.Context, zw *zip.Writer, evidence []models.EvidenceView) (downloadResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := semaphore.NewWeighted(int64(s.cfg.DownloadConcurrency))
	slots := make(chan chan fetched, len(evidence))

	go func() {
		defer close(slots)
		for _, ev := range evidence {
			slot := make(chan fetched, 1)
			if ev.StorageKey == "" {
				slot <- fetched{reason: ReasonMissingStorageKey, release: func() {}}
				slots <- slot
				continue
			}
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			slots <- slot
			go func(key string) {
				slot <- s.open(ctx, key, func() { sem.Release(1) })
			}(ev.StorageKey)
		}
	}()

	var (
		result downloadResult
		names  = entryNames{}
		i      int
		err    error
	)
	for slot := range slots {
		f := <-slot
		if err != nil || ctx.Err() != nil {
			f.close()
			continue
		}
		ev := evidence[i]
		i++

		if f.reason == ReasonMissingStorageKey {
			f.close()
			result.failures = append(result.failures, Failure{EvidenceID: ev.ID, Reason: f.reason})
			s.metrics.IncrementEvidenceDownload(f.reason)
			continue
		}

		name := names.claim(SafeEntryName(ev.OriginalFilename, ev.ID), ev.ID)
		reason, werr := s.write(zw, name, f)
		f.close()
		if werr != nil {
			err = werr
			cancel()
			continue
		}
		if reason != "" {
			if ctx.Err() != nil {
				continue
			}
			s.logger.WarnContext(ctx, "evidence download failed",
				"request_id", requestcontext.RequestID(ctx),
				"evidence_id", ev.ID,
				"reason", reason,
			)
			result.failures = append(result.failures, Failure{EvidenceID: ev.ID, Filename: name, Reason: reason})
			s.metrics.IncrementEvidenceDownload(reason)
			continue
		}
		result.downloaded++
		s.metrics.IncrementEvidenceDownload("success")
	}

	if err != nil {
		return downloadResult{}, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return downloadResult{}, ctxErr
	}
	return result, nil
}

// open resolves the retrieval URL and issues the GET under its own
// DownloadTimeout. The timer stops once headers arrive; write starts a
// fresh one for the body.
func (s *Service) open(ctx context.Context, key string, releaseSlot func()) fetched {
	fctx, cancel := context.WithCancel(ctx)
	release := func() {
		cancel()
		releaseSlot()
	}
	timer := time.AfterFunc(s.cfg.DownloadTimeout, cancel)

	u, err := s.urls.RetrievalURL(fctx, key)
	if err != nil {
		timer.Stop()
		return fetched{reason: ReasonRetrievalURLFailed, release: release}
	}
	req, err := http.NewRequestWithContext(fctx, http.MethodGet, u.URL, nil)
	if err != nil {
		timer.Stop()
		return fetched{reason: ReasonRequestFailed, release: release}
	}
	resp, err := s.client.Do(req)
	if err != nil {
		timer.Stop()
		return fetched{reason: ReasonRequestFailed, release: release}
	}
	if !timer.Stop() {
		_ = resp.Body.Close()
		return fetched{reason: ReasonRequestFailed, release: release}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return fetched{reason: httpStatusReason(resp.StatusCode), release: release}
	}
	return fetched{body: resp.Body, abort: cancel, release: release}
}

// write streams an opened response into a new entry within DownloadTimeout.
// Entries cannot be removed from a zip stream, so a failed copy leaves the
// truncated entry in place and reports stream_failed. Only errors from the
// archive itself are returned.
func (s *Service) write(zw *zip.Writer, name string, f fetched) (string, error) {
	if f.reason != "" {
		return f.reason, nil
	}
	w, err := ziputil.Create(zw, evidenceFilesDir+name)
	if err != nil {
		return "", err
	}
	timer := time.AfterFunc(s.cfg.DownloadTimeout, f.abort)
	defer timer.Stop()
	if _, err := io.Copy(w, f.body); err != nil {
		return ReasonStreamFailed, nil
	}
	return "", nil
}

func (f fetched) close() {
	if f.body != nil {
		_ = f.body.Close()
	}
	f.release()
}
