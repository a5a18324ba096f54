package ir

// NOTE: These are journal records written by internal/store, not inputs to
// the engine.

// PatchRun groups the outcomes of one `ilpatch apply` invocation.
type PatchRun struct {
	ID            string `json:"id"` // UUIDv7
	Seq           int64  `json:"seq"`
	DefsDir       string `json:"defs_dir"`
	EngineVersion string `json:"engine_version"`
	IRVersion     string `json:"ir_version"`
}

// PatchOutcome records the result of applying one patch definition to one
// method body.
type PatchOutcome struct {
	ID                int64  `json:"id"` // Auto-increment
	RunID             string `json:"run_id"`
	Seq               int64  `json:"seq"`
	PatchName         string `json:"patch_name"`
	Target            string `json:"target"`
	PatchDefHash      string `json:"patch_def_hash"`
	OriginalHash      string `json:"original_hash"`
	ResultHash        string `json:"result_hash"`
	IsPatched         bool   `json:"is_patched"`
	FailureCode       string `json:"failure_code,omitempty"`
	OriginalPositions []int  `json:"original_positions"`
	Positions         []int  `json:"positions"`
	Listing           string `json:"listing"`
}
