package matrix

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"git.home.luguber.info/inful/buildcheck/internal/preset"
	"git.home.luguber.info/inful/buildcheck/internal/toolchain"
)

func newTestCellState(t *testing.T, cell Cell, runner toolchain.Runner) *cellState {
	t.Helper()
	root := t.TempDir()
	buildDir := filepath.Join(root, "build")
	if err := os.MkdirAll(buildDir, 0o750); err != nil {
		t.Fatalf("mkdir build dir: %v", err)
	}
	return &cellState{
		cell: cell,
		opts: &Options{
			SourceDir:       filepath.Join(root, "src"),
			ConsumerDir:     filepath.Join(root, "test_package"),
			ConsumerBinary:  "example",
			ToolchainFile:   "/opt/vcpkg/scripts/buildsystems/vcpkg.cmake",
			OverlayPortsDir: filepath.Join(root, "overlay", "ports"),
			Runner:          runner,
		},
		buildDir:    buildDir,
		installDir:  filepath.Join(root, "install"),
		consumerDir: filepath.Join(root, "consumer"),
	}
}

func TestRunCellStages_AllStagesPassInOrder(t *testing.T) {
	runner := &toolchain.ScriptedRunner{}
	cs := newTestCellState(t, Cell{BuildRelease, LinkStatic}, runner)

	result := runCellStages(context.Background(), cs, cellStageDefs())

	if !result.Passed {
		t.Fatalf("Expected cell to pass, failed at %s: %s", result.FailedStage, result.Diagnostic)
	}
	if result.FailedStage != "" {
		t.Errorf("Passed cell has failed stage %q", result.FailedStage)
	}

	var got []StageName
	for _, sr := range result.Stages {
		got = append(got, sr.Stage)
		if sr.Status != StageSuccess {
			t.Errorf("Stage %s status = %s, want success", sr.Stage, sr.Status)
		}
	}
	if !slices.Equal(got, CellStages()) {
		t.Errorf("Stage order = %v, want %v", got, CellStages())
	}
}

func TestRunCellStages_FailureShortCircuitsDownstream(t *testing.T) {
	runner := &toolchain.ScriptedRunner{
		OnRun: func(inv toolchain.Invocation) (toolchain.Result, error) {
			if len(inv.Args) > 0 && inv.Args[0] == "--build" {
				fmt.Fprint(inv.Stderr, "undefined reference to `widget_version'")
				return toolchain.Result{ExitCode: 2}, fmt.Errorf("cmake exited with code 2")
			}
			return toolchain.Result{}, nil
		},
	}
	cs := newTestCellState(t, Cell{BuildRelease, LinkStatic}, runner)

	result := runCellStages(context.Background(), cs, cellStageDefs())

	if result.Passed {
		t.Fatal("Expected cell to fail at build stage")
	}
	if result.FailedStage != StageBuild {
		t.Errorf("FailedStage = %s, want %s", result.FailedStage, StageBuild)
	}

	var got []StageName
	for _, sr := range result.Stages {
		got = append(got, sr.Stage)
	}
	if want := []StageName{StageConfigure, StageBuild}; !slices.Equal(got, want) {
		t.Errorf("Attempted stages = %v, want %v", got, want)
	}

	last := result.Stages[len(result.Stages)-1]
	if last.Status != StageFatal {
		t.Errorf("Failing stage status = %s, want fatal", last.Status)
	}
	if last.ExitCode != 2 {
		t.Errorf("Failing stage exit code = %d, want 2", last.ExitCode)
	}
	if !strings.Contains(result.Diagnostic, "undefined reference") {
		t.Errorf("Diagnostic %q does not carry the captured stderr", result.Diagnostic)
	}
}

func TestRunCellStages_CanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := &toolchain.ScriptedRunner{}
	cs := newTestCellState(t, Cell{BuildDebug, LinkStatic}, runner)

	result := runCellStages(ctx, cs, cellStageDefs())

	if result.Passed {
		t.Fatal("Expected canceled cell to fail")
	}
	if result.FailedStage != StageConfigure {
		t.Errorf("FailedStage = %s, want %s", result.FailedStage, StageConfigure)
	}
	if len(result.Stages) != 1 || result.Stages[0].Status != StageCanceled {
		t.Errorf("Expected a single canceled stage entry, got %+v", result.Stages)
	}
	if len(runner.Calls()) != 0 {
		t.Errorf("Expected no tool invocations after cancellation, got %d", len(runner.Calls()))
	}
}

func TestStageConfigure_ComposesCellFlags(t *testing.T) {
	runner := &toolchain.ScriptedRunner{}
	cs := newTestCellState(t, Cell{BuildDebug, LinkShared}, runner)

	if err := stageConfigure(context.Background(), cs); err != nil {
		t.Fatalf("stageConfigure failed: %v", err)
	}

	calls := runner.Calls()
	if len(calls) != 1 {
		t.Fatalf("Expected one invocation, got %d", len(calls))
	}
	args := calls[0].Args
	for _, want := range []string{
		"-DCMAKE_BUILD_TYPE=Debug",
		"-DBUILD_SHARED_LIBS=ON",
		"-DCMAKE_INSTALL_PREFIX=" + cs.installDir,
		"-DCMAKE_TOOLCHAIN_FILE=" + cs.opts.ToolchainFile,
		"-DBUILD_TESTING=OFF",
	} {
		if !slices.Contains(args, want) {
			t.Errorf("Configure args missing %q: %v", want, args)
		}
	}
	for _, arg := range args {
		if strings.HasPrefix(arg, "-DCMAKE_C_COMPILER=") {
			t.Errorf("Compiler flag injected without ambient pair: %v", args)
		}
	}
}

func TestStageConfigure_InjectsResolvedCompilerPair(t *testing.T) {
	runner := &toolchain.ScriptedRunner{}
	cs := newTestCellState(t, Cell{BuildRelease, LinkStatic}, runner)
	cs.compilers = preset.Compilers{CC: "gcc-12", CXX: "g++-12"}

	if err := stageConfigure(context.Background(), cs); err != nil {
		t.Fatalf("stageConfigure failed: %v", err)
	}

	args := runner.Calls()[0].Args
	if !slices.Contains(args, "-DCMAKE_C_COMPILER=gcc-12") || !slices.Contains(args, "-DCMAKE_CXX_COMPILER=g++-12") {
		t.Errorf("Expected resolved compiler pair in args: %v", args)
	}
}

func TestStageConsumerConfigure_PointsAtInstallAndOverlay(t *testing.T) {
	runner := &toolchain.ScriptedRunner{}
	cs := newTestCellState(t, Cell{BuildRelease, LinkStatic}, runner)

	if err := stageConsumerConfigure(context.Background(), cs); err != nil {
		t.Fatalf("stageConsumerConfigure failed: %v", err)
	}

	args := runner.Calls()[0].Args
	for _, want := range []string{
		"-DCMAKE_PREFIX_PATH=" + cs.installDir,
		"-DVCPKG_OVERLAY_PORTS=" + cs.opts.OverlayPortsDir,
	} {
		if !slices.Contains(args, want) {
			t.Errorf("Downstream configure args missing %q: %v", want, args)
		}
	}
}

func TestStageConsumerRun_ExtendsLibPathForSharedCells(t *testing.T) {
	runner := &toolchain.ScriptedRunner{}
	cs := newTestCellState(t, Cell{BuildRelease, LinkShared}, runner)

	if err := stageConsumerRun(context.Background(), cs); err != nil {
		t.Fatalf("stageConsumerRun failed: %v", err)
	}

	call := runner.Calls()[0]
	if want := filepath.Join(cs.consumerDir, "example"); call.Tool != want {
		t.Errorf("Consumer binary = %q, want %q", call.Tool, want)
	}

	prefix := toolchain.DynamicLibPathVar() + "=" + filepath.Join(cs.installDir, "lib")
	found := false
	for _, kv := range call.Env {
		if strings.HasPrefix(kv, prefix) {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected %q in env, got %v", prefix, call.Env)
	}
}

func TestStageConsumerRun_LeavesLibPathAloneForStaticCells(t *testing.T) {
	runner := &toolchain.ScriptedRunner{}
	cs := newTestCellState(t, Cell{BuildRelease, LinkStatic}, runner)

	if err := stageConsumerRun(context.Background(), cs); err != nil {
		t.Fatalf("stageConsumerRun failed: %v", err)
	}
	if env := runner.Calls()[0].Env; len(env) != 0 {
		t.Errorf("Static cell run should not touch the environment, got %v", env)
	}
}

func TestTailBufferKeepsOnlyTail(t *testing.T) {
	tb := newTailBuffer(8)
	if _, err := tb.Write([]byte("0123456789abcdef")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if got := tb.String(); got != "89abcdef" {
		t.Errorf("String() = %q, want %q", got, "89abcdef")
	}
}
