package matrix

// StageName is a strongly-typed identifier for a pipeline stage. All
// canonical stages are declared as constants here for compile-time safety.
type StageName string

// Canonical stage names, in pipeline order.
const (
	StageConfigure         StageName = "configure"
	StageBuild             StageName = "build"
	StageInstall           StageName = "install"
	StageConsumerConfigure StageName = "downstream-configure"
	StageConsumerBuild     StageName = "downstream-build"
	StageConsumerRun       StageName = "downstream-run"
)

// CellStages returns the fixed stage order every cell walks through.
func CellStages() []StageName {
	return []StageName{
		StageConfigure,
		StageBuild,
		StageInstall,
		StageConsumerConfigure,
		StageConsumerBuild,
		StageConsumerRun,
	}
}
