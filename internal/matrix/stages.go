package matrix

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/buildcheck/internal/preset"
	"git.home.luguber.info/inful/buildcheck/internal/toolchain"
)

// Stage is a discrete unit of work in a cell's pipeline.
type Stage func(ctx context.Context, cs *cellState) error

// StageErrorKind enumerates structured stage error categories.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"    // Terminal for the cell.
	StageErrorCanceled StageErrorKind = "canceled" // Context cancellation.
)

// StageError is a structured error carrying category, matrix coordinates,
// and the underlying cause.
type StageError struct {
	Kind     StageErrorKind
	Stage    StageName
	Cell     string
	Err      error
	ExitCode int
	// Output holds the tail of the tool's captured stderr.
	Output string
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage %s in cell %s: %v", e.Kind, e.Stage, e.Cell, e.Err)
}
func (e *StageError) Unwrap() error { return e.Err }

func newFatalStageError(stage StageName, cell string, err error) *StageError {
	return &StageError{Kind: StageErrorFatal, Stage: stage, Cell: cell, Err: err}
}
func newCanceledStageError(stage StageName, cell string, err error) *StageError {
	return &StageError{Kind: StageErrorCanceled, Stage: stage, Cell: cell, Err: err}
}

// StageDef pairs a stage name with its executing function.
type StageDef struct {
	Name StageName
	Fn   Stage
}

// cellStageDefs wires the canonical stage order to its implementations.
func cellStageDefs() []StageDef {
	return []StageDef{
		{StageConfigure, stageConfigure},
		{StageBuild, stageBuild},
		{StageInstall, stageInstall},
		{StageConsumerConfigure, stageConsumerConfigure},
		{StageConsumerBuild, stageConsumerBuild},
		{StageConsumerRun, stageConsumerRun},
	}
}

// cellState carries mutable state across one cell's stages. Every path in it
// is private to the cell, so concurrent cells never share mutable state.
type cellState struct {
	cell        Cell
	opts        *Options
	buildDir    string
	installDir  string
	consumerDir string
	compilers   preset.Compilers
}

// invoke runs one external tool for a stage, teeing its output into a stage
// log file inside the cell's build directory and keeping a stderr tail for
// diagnostics. Failures come back as classified StageErrors.
func (cs *cellState) invoke(ctx context.Context, stage StageName, tool string, args []string, extraEnv ...string) error {
	logFile, err := os.Create(filepath.Join(cs.buildDir, string(stage)+".log"))
	if err != nil {
		return newFatalStageError(stage, cs.cell.Name(), fmt.Errorf("create stage log: %w", err))
	}
	defer logFile.Close()

	tail := newTailBuffer(diagnosticTailBytes)
	res, err := cs.opts.Runner.Run(ctx, toolchain.Invocation{
		Tool:   tool,
		Args:   args,
		Env:    extraEnv,
		Stdout: logFile,
		Stderr: io.MultiWriter(logFile, tail),
	})
	if err != nil {
		if ctx.Err() != nil {
			return newCanceledStageError(stage, cs.cell.Name(), ctx.Err())
		}
		se := newFatalStageError(stage, cs.cell.Name(), err)
		se.ExitCode = res.ExitCode
		se.Output = tail.String()
		return se
	}
	return nil
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}

func stageConfigure(ctx context.Context, cs *cellState) error {
	args := []string{
		"-S", cs.opts.SourceDir,
		"-B", cs.buildDir,
		"-DCMAKE_BUILD_TYPE=" + string(cs.cell.Build),
		"-DBUILD_SHARED_LIBS=" + onOff(cs.cell.Shared()),
		"-DCMAKE_INSTALL_PREFIX=" + cs.installDir,
		"-DCMAKE_TOOLCHAIN_FILE=" + cs.opts.ToolchainFile,
		"-DBUILD_TESTING=OFF",
	}
	if cs.compilers.CC != "" && cs.compilers.CXX != "" {
		args = append(args,
			"-DCMAKE_C_COMPILER="+cs.compilers.CC,
			"-DCMAKE_CXX_COMPILER="+cs.compilers.CXX)
	}
	return cs.invoke(ctx, StageConfigure, toolchain.ToolCMake, args)
}

func stageBuild(ctx context.Context, cs *cellState) error {
	return cs.invoke(ctx, StageBuild, toolchain.ToolCMake, []string{"--build", cs.buildDir})
}

func stageInstall(ctx context.Context, cs *cellState) error {
	return cs.invoke(ctx, StageInstall, toolchain.ToolCMake, []string{"--install", cs.buildDir})
}

func stageConsumerConfigure(ctx context.Context, cs *cellState) error {
	args := []string{
		"-S", cs.opts.ConsumerDir,
		"-B", cs.consumerDir,
		"-DCMAKE_BUILD_TYPE=" + string(cs.cell.Build),
		"-DBUILD_SHARED_LIBS=" + onOff(cs.cell.Shared()),
		"-DCMAKE_PREFIX_PATH=" + cs.installDir,
		"-DCMAKE_TOOLCHAIN_FILE=" + cs.opts.ToolchainFile,
		"-DVCPKG_OVERLAY_PORTS=" + cs.opts.OverlayPortsDir,
	}
	return cs.invoke(ctx, StageConsumerConfigure, toolchain.ToolCMake, args)
}

func stageConsumerBuild(ctx context.Context, cs *cellState) error {
	return cs.invoke(ctx, StageConsumerBuild, toolchain.ToolCMake, []string{"--build", cs.consumerDir})
}

func stageConsumerRun(ctx context.Context, cs *cellState) error {
	bin := filepath.Join(cs.consumerDir, cs.opts.ConsumerBinary)
	var env []string
	if cs.cell.Shared() {
		env = append(env, toolchain.ExtendPathVar(toolchain.DynamicLibPathVar(), filepath.Join(cs.installDir, "lib")))
	}
	return cs.invoke(ctx, StageConsumerRun, bin, nil, env...)
}

// runCellStages executes stages in order, recording timing and stopping on
// the first failure. The failing stage is the last entry of the returned
// stage list; stages after it are never attempted.
func runCellStages(ctx context.Context, cs *cellState, stages []StageDef) CellResult {
	result := CellResult{Cell: cs.cell, Start: time.Now()}
	for _, st := range stages {
		select {
		case <-ctx.Done():
			result.Stages = append(result.Stages, StageResult{Stage: st.Name, Status: StageCanceled})
			result.FailedStage = st.Name
			result.Diagnostic = ctx.Err().Error()
			result.End = time.Now()
			return result
		default:
		}

		t0 := time.Now()
		err := st.Fn(ctx, cs)
		sr := StageResult{Stage: st.Name, Status: StageSuccess, Duration: time.Since(t0)}
		if err != nil {
			var se *StageError
			if !errors.As(err, &se) {
				se = newFatalStageError(st.Name, cs.cell.Name(), err)
			}
			sr.ExitCode = se.ExitCode
			if se.Kind == StageErrorCanceled {
				sr.Status = StageCanceled
			} else {
				sr.Status = StageFatal
			}
			result.Stages = append(result.Stages, sr)
			result.FailedStage = st.Name
			result.Diagnostic = se.Output
			if result.Diagnostic == "" {
				result.Diagnostic = se.Err.Error()
			}
			result.End = time.Now()
			return result
		}
		result.Stages = append(result.Stages, sr)
	}
	result.Passed = true
	result.End = time.Now()
	return result
}
