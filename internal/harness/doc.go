// Package harness provides conformance testing for patch definitions.
//
// A scenario applies one patch to one method body and asserts on the
// outcome. The harness drives the real engine: nothing is simulated.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: hook_tick
//	description: "Call the mod hook after every Tick"
//	target: Game.Player::Update
//	body: |
//	  ldarg 0
//	  call method:Game.Player::Tick
//	  ret
//	patch:
//	  mode: insert
//	  offset: 1
//	  max_patches: 1
//	  pattern: |
//	    call method:Game.Player::Tick
//	  replacement: |
//	    call method:Mod.Hooks::OnTick
//	assertions:
//	  - type: patched
//	  - type: positions
//	    original: [1]
//	    final: [2]
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - patched: The request was applied
//   - not_patched: The request failed, optionally with a failure code
//   - length_law: Output length follows from the number of edits
//   - labels_conserved: Every original label survives exactly once
//   - positions: Original and final positions equal the expected lists
//   - reapply_inserts_again: Insertion is not idempotent
//   - safety_offset: No accepted match starts below min_safety_offset
//
// # Golden Files
//
// Snapshot renders the installed sequence with a '#' header holding the
// outcome. RunWithGolden compares it against testdata/golden/<name>.golden
// using goldie.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/hook_tick.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, err := range result.Errors {
//	        log.Println(err)
//	    }
//	}
package harness
