// Package pipeline sequences validation, compilation, packaging and signing
// of a plugin as a state machine.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/statekit"
	"golang.org/x/crypto/ssh"

	"github.com/felixgeelhaar/pluginkit/internal/adapters/logging"
	"github.com/felixgeelhaar/pluginkit/internal/domain/archive"
	"github.com/felixgeelhaar/pluginkit/internal/domain/backup"
	"github.com/felixgeelhaar/pluginkit/internal/domain/manifest"
	"github.com/felixgeelhaar/pluginkit/internal/domain/plugin"
	"github.com/felixgeelhaar/pluginkit/internal/domain/signing"
	"github.com/felixgeelhaar/pluginkit/internal/ports"
)

// State is a pipeline stage.
type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateCompiling  State = "compiling"
	StatePackaging  State = "packaging"
	StateSigning    State = "signing"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Event types for the pipeline state machine.
const (
	EventStart     = "START"
	EventValidated = "VALIDATED"
	EventCompiled  = "COMPILED"
	EventPackaged  = "PACKAGED"
	EventSigned    = "SIGNED"
	EventSkip      = "SKIP"
	EventFail      = "FAIL"
)

// Context is the state machine context.
type Context struct {
	Plugin string
	Err    error
}

// ValidateFunc validates every manifest of a plugin.
type ValidateFunc func(ctx context.Context, pluginDir string) (*manifest.Report, error)

// Compiler compiles a plugin in place.
type Compiler interface {
	Compile(ctx context.Context, info plugin.Info, skipTypeCheck bool) error
}

// Archiver writes plugin archives.
type Archiver interface {
	CreateZip(ctx context.Context, info plugin.Info, mode archive.Mode) (string, error)
}

// Request selects what a run does.
type Request struct {
	Mode          archive.Mode
	SkipTypeCheck bool
	// SkipValidation packages without checking manifests.
	SkipValidation bool
	// InPlace compiles the plugin directory itself instead of a staged copy.
	// Compiled sources replace the TypeScript files.
	InPlace bool
	// Signer signs the archive when set.
	Signer ssh.Signer
}

// Result describes a finished run.
type Result struct {
	Plugin      plugin.Info
	Report      *manifest.Report
	Archive     string
	Signature   string
	State       State
	Transitions []State
}

// StageError reports the stage a run failed in.
type StageError struct {
	Stage State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage returns the stage err was raised in, or "".
func FailedStage(err error) State {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// Pipeline runs the release stages for one plugin at a time.
type Pipeline struct {
	validate ValidateFunc
	compiler Compiler
	archiver Archiver
	staging  *backup.Manager
	logger   ports.Logger
	mu       sync.Mutex
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithValidator replaces manifest validation.
func WithValidator(fn ValidateFunc) Option {
	return func(p *Pipeline) {
		p.validate = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger ports.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logging.OrNop(logger)
	}
}

// New creates a pipeline. staging holds the copies compiled when a request
// is not in place.
func New(compiler Compiler, archiver Archiver, staging *backup.Manager, opts ...Option) *Pipeline {
	p := &Pipeline{
		validate: manifest.ValidatePlugin,
		compiler: compiler,
		archiver: archiver,
		staging:  staging,
		logger:   logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// buildMachine constructs the release state machine. Actions write through
// the captured mctx pointer since the interpreter holds its own copy.
func buildMachine(mctx *Context) (*statekit.Interpreter[Context], error) {
	machine, err := statekit.NewMachine[Context]("pluginkit-release").
		WithInitial(string(StateIdle)).
		WithContext(*mctx).
		WithAction("recordFailure", func(_ *Context, event statekit.Event) {
			if err, ok := event.Payload.(error); ok {
				mctx.Err = err
			}
		}).
		State(string(StateIdle)).
		On(EventStart).Target(string(StateValidating)).Done().
		State(string(StateValidating)).
		On(EventValidated).Target(string(StateCompiling)).
		On(EventSkip).Target(string(StateCompiling)).
		On(EventFail).Target(string(StateFailed)).Done().
		State(string(StateCompiling)).
		On(EventCompiled).Target(string(StatePackaging)).
		On(EventSkip).Target(string(StatePackaging)).
		On(EventFail).Target(string(StateFailed)).Done().
		State(string(StatePackaging)).
		On(EventPackaged).Target(string(StateSigning)).
		On(EventFail).Target(string(StateFailed)).Done().
		State(string(StateSigning)).
		On(EventSigned).Target(string(StateDone)).
		On(EventSkip).Target(string(StateDone)).
		On(EventFail).Target(string(StateFailed)).Done().
		State(string(StateDone)).Done().
		State(string(StateFailed)).
		OnEntry("recordFailure").Done().
		Build()
	if err != nil {
		return nil, err
	}
	return statekit.NewInterpreter(machine), nil
}

type run struct {
	interp *statekit.Interpreter[Context]
	result *Result
}

func (r *run) send(event string, payload any) {
	r.interp.Send(statekit.Event{Type: statekit.EventType(event), Payload: payload})
	r.result.State = State(r.interp.State().Value)
	r.result.Transitions = append(r.result.Transitions, r.result.State)
}

func (r *run) fail(stage State, err error) error {
	stageErr := &StageError{Stage: stage, Err: err}
	r.send(EventFail, stageErr)
	return stageErr
}

// Run executes the pipeline for the plugin at pluginDir. The returned result
// records every state entered, also when an error is returned.
func (p *Pipeline) Run(ctx context.Context, pluginDir string, req Request) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	info, err := plugin.Probe(pluginDir)
	if err != nil {
		return nil, err
	}
	if err := info.RequireModules(); err != nil {
		return nil, err
	}

	mctx := &Context{Plugin: info.Name}
	interp, err := buildMachine(mctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build state machine: %w", err)
	}
	interp.Start()
	defer interp.Stop()

	r := &run{interp: interp, result: &Result{Plugin: info, State: StateIdle}}
	r.send(EventStart, nil)

	// Validating
	if req.SkipValidation {
		r.send(EventSkip, nil)
	} else {
		report, err := p.validate(ctx, info.Path)
		if err != nil {
			return r.result, r.fail(StateValidating, err)
		}
		r.result.Report = report
		if err := report.Err(); err != nil {
			return r.result, r.fail(StateValidating, err)
		}
		r.send(EventValidated, nil)
	}

	// Compiling
	work := info
	if req.Mode != archive.Production {
		r.send(EventSkip, nil)
	} else {
		if !req.InPlace {
			snap, err := p.staging.Create(ctx, info.Path)
			if err != nil {
				return r.result, r.fail(StateCompiling, err)
			}
			defer func() {
				if derr := p.staging.Discard(context.WithoutCancel(ctx), snap); derr != nil {
					p.logger.Warn(ctx, "could not remove staged copy", ports.F("error", derr))
				}
			}()
			if work, err = plugin.Probe(snap.Location); err != nil {
				return r.result, r.fail(StateCompiling, err)
			}
			p.logger.Debug(ctx, "compiling staged copy", ports.F("path", work.Path))
		}
		if err := p.compiler.Compile(ctx, work, req.SkipTypeCheck); err != nil {
			return r.result, r.fail(StateCompiling, err)
		}
		r.send(EventCompiled, nil)
	}

	// Packaging
	path, err := p.archiver.CreateZip(ctx, work, req.Mode)
	if err != nil {
		return r.result, r.fail(StatePackaging, err)
	}
	r.result.Archive = path
	r.send(EventPackaged, nil)

	// Signing
	if req.Signer == nil {
		r.send(EventSkip, nil)
	} else {
		sigPath, _, err := signing.Sign(path, req.Signer)
		if err != nil {
			return r.result, r.fail(StateSigning, err)
		}
		r.result.Signature = sigPath
		r.send(EventSigned, nil)
	}

	p.logger.Info(ctx, "pipeline finished",
		ports.F("plugin", info.Name),
		ports.F("mode", req.Mode.String()),
		ports.F("archive", path))

	return r.result, nil
}
