package voicestage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

var (
	errNoScript        = errors.New("no script file uploaded")
	errInvalidFileType = errors.New("invalid file type")
)

// BatchState tracks where a run is in its lifecycle.
type BatchState int

const (
	StateIdle BatchState = iota
	StateValidating
	StateInitializing
	StateProcessing
	StateDone
)

func (s BatchState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateInitializing:
		return "initializing"
	case StateProcessing:
		return "processing"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Artifact references one generated clip and the line it voices. Dialogue
// carries the original text, director notes intact, for display next to
// the audio element.
type Artifact struct {
	Ordinal   int    `json:"ordinal"`
	Line      int    `json:"line"`
	Character string `json:"character"`
	Dialogue  string `json:"dialogue"`
	Filename  string `json:"filename"`
}

// Result summarizes exactly one batch run. Results are never merged across
// runs; errors and artifacts preserve source line order.
type Result struct {
	RunID     string     `json:"run_id"`
	Processed int        `json:"processed"` // non-blank lines seen
	Generated int        `json:"generated"`
	Errors    []string   `json:"errors,omitempty"`
	Artifacts []Artifact `json:"artifacts,omitempty"`
}

// Summary is the always-present status line of a run.
func (r *Result) Summary() string {
	return fmt.Sprintf("Processed %d lines. Generated %d files.", r.Processed, r.Generated)
}

// Orchestrator drives one uploaded script through parse, clean, resolve and
// synthesize. Runs are single-threaded and strictly sequential; the
// orchestrator holds no cross-run state, so each invocation gets an
// isolated Result and its own ordinal counter.
type Orchestrator struct {
	cfg      Config
	registry *Registry
	ws       *Workspace
	factory  SynthesizerFactory
}

func NewOrchestrator(cfg Config, registry *Registry, ws *Workspace, factory SynthesizerFactory) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		registry: registry,
		ws:       ws,
		factory:  factory,
	}
}

type lineError struct {
	line int
	msg  string
}

// Run executes one batch. Fatal conditions (bad upload, wrong extension,
// provider initialization failure) return an error and no Result; per-line
// failures are collected into the Result and never stop later lines.
func (o *Orchestrator) Run(ctx context.Context, filename string, script []byte) (*Result, error) {
	state := StateValidating
	appLog.Debug().Str("state", state.String()).Str("file", filename).Msg("batch run")

	if strings.TrimSpace(filename) == "" {
		return nil, errNoScript
	}
	if !strings.EqualFold(filepath.Ext(filename), scriptExt) {
		return nil, fmt.Errorf("%w %q: upload a %s script", errInvalidFileType, filepath.Base(filename), scriptExt)
	}

	state = StateInitializing
	appLog.Debug().Str("state", state.String()).Msg("batch run")
	syn, err := o.factory(ctx, o.cfg)
	if err != nil {
		return nil, err
	}
	if err := o.ws.Ensure(); err != nil {
		return nil, err
	}

	state = StateProcessing
	appLog.Debug().Str("state", state.String()).Msg("batch run")
	records, formatErrs, processed := parseScript(string(script))

	result := &Result{
		RunID:     uuid.NewString(),
		Processed: processed,
	}

	entries := make([]lineError, 0, len(formatErrs))
	for _, fe := range formatErrs {
		entries = append(entries, lineError{line: fe.Line, msg: fe.Error()})
	}

	for _, rec := range records {
		cleaned := cleanDialogue(rec.Text)
		if cleaned == "" {
			entries = append(entries, lineError{
				line: rec.Line,
				msg:  fmt.Sprintf("Line %d (%s): %v", rec.Line, rec.Character, errNoSpeakableText),
			})
			continue
		}
		voice, err := o.registry.Resolve(rec.Character)
		if err != nil {
			entries = append(entries, lineError{
				line: rec.Line,
				msg:  fmt.Sprintf("Line %d: %v", rec.Line, err),
			})
			continue
		}
		dest := o.ws.ArtifactPath(rec.Ordinal, rec.Character)
		if err := synthesizeLine(ctx, syn, rec.Character, voice, cleaned, dest); err != nil {
			appLog.Error().Err(err).Int("line", rec.Line).Str("character", rec.Character).Msg("line failed")
			entries = append(entries, lineError{
				line: rec.Line,
				msg:  fmt.Sprintf("Line %d (%s): %v", rec.Line, rec.Character, err),
			})
			continue
		}
		result.Generated++
		result.Artifacts = append(result.Artifacts, Artifact{
			Ordinal:   rec.Ordinal,
			Line:      rec.Line,
			Character: rec.Character,
			Dialogue:  rec.Text,
			Filename:  filepath.Base(dest),
		})
	}

	// Format errors and per-line failures were collected separately;
	// re-merge them into source order before emission.
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].line < entries[j].line })
	for _, e := range entries {
		result.Errors = append(result.Errors, e.msg)
	}

	state = StateDone
	appLog.Info().
		Str("state", state.String()).
		Str("run_id", result.RunID).
		Int("processed", result.Processed).
		Int("generated", result.Generated).
		Int("errors", len(result.Errors)).
		Msg("batch done")
	return result, nil
}
