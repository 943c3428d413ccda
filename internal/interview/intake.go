package interview

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"interview-backend/internal/extract"
	"interview-backend/internal/llm"
	"interview-backend/internal/shared/config"
	"interview-backend/internal/shared/metrics"
	"interview-backend/internal/shared/storage/object"
	"interview-backend/internal/shared/telemetry"
)

// Upload is a resume file received from the candidate.
type Upload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Intake turns an uploaded resume into parsed candidate fields.
type Intake struct {
	store     *Store
	ai        llm.Client
	objects   object.ObjectStore
	textLimit int
	maxBytes  int64
}

// NewIntake returns an intake pipeline. objects may be nil, in which case
// uploads are not archived.
func NewIntake(store *Store, ai llm.Client, objects object.ObjectStore, cfg *config.Interview) *Intake {
	return &Intake{
		store:     store,
		ai:        ai,
		objects:   objects,
		textLimit: cfg.Settings.ResumeTextLimit,
		maxBytes:  cfg.Settings.MaxUploadBytes,
	}
}

// Process validates, archives, extracts and parses an upload, then moves the
// session to validating_info. Parser failures degrade to empty fields.
func (in *Intake) Process(ctx context.Context, up Upload) (State, error) {
	sess := in.store.Snapshot().CurrentInterview
	if sess.Status != StatusUploading {
		return State{}, invalidTransition("upload", sess.Status)
	}
	if int64(len(up.Data)) > in.maxBytes {
		return State{}, fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, len(up.Data), in.maxBytes)
	}
	mimeType := up.ContentType
	if mimeType == "" {
		mimeType = http.DetectContentType(up.Data)
	}
	if !extract.Supported(mimeType, up.FileName, up.Data) {
		return State{}, fmt.Errorf("%w: please upload a PDF or DOCX file", ErrUnsupportedType)
	}

	fileKey := in.archive(ctx, sess.CandidateID, up)

	text, err := extract.ExtractTextFromBytes(ctx, up.Data, mimeType, up.FileName)
	if err != nil {
		telemetry.Warn("interview.extract_failed", map[string]any{
			"candidate_id": sess.CandidateID,
			"file_name":    up.FileName,
			"err":          telemetry.ErrString(err),
		})
		return State{}, err
	}
	if fileKey != "" {
		if _, err := extract.SaveExtracted(ctx, in.objects, fileKey, text); err != nil {
			telemetry.Warn("interview.archive_failed", map[string]any{
				"candidate_id": sess.CandidateID,
				"err":          telemetry.ErrString(err),
			})
		}
	}

	fields, err := in.ai.ParseResume(ctx, truncateRunes(text, in.textLimit))
	if err != nil {
		telemetry.Warn("interview.parse_fallback", map[string]any{
			"candidate_id": sess.CandidateID,
			"err":          telemetry.ErrString(err),
		})
		metrics.IncParseFallback()
		fields = llm.ResumeFields{}
	}
	if fields.Skills == nil {
		fields.Skills = []string{}
	}
	return in.store.SetParsedInfo(ctx, sess.CandidateID, fields)
}

func (in *Intake) archive(ctx context.Context, candidateID string, up Upload) string {
	if in.objects == nil {
		return ""
	}
	key, size, _, err := in.objects.Save(ctx, candidateID, up.FileName, bytes.NewReader(up.Data))
	if err != nil {
		telemetry.Warn("interview.archive_failed", map[string]any{
			"candidate_id": candidateID,
			"file_name":    up.FileName,
			"err":          telemetry.ErrString(err),
		})
		return ""
	}
	telemetry.Info("interview.resume_archived", map[string]any{
		"candidate_id": candidateID,
		"storage_key":  key,
		"size_bytes":   size,
	})
	return key
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
