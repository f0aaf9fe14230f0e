package main

import "testing"

func TestHistoryFlagsIndependent(t *testing.T) {
	runFlag := runCmd.Flags().Lookup("history")
	if runFlag == nil {
		t.Fatal("run command has no --history flag")
	}
	if got := runFlag.Value.String(); got != "" {
		t.Errorf("run --history default = %q, want empty (history off unless named)", got)
	}

	histFlag := historyCmd.Flags().Lookup("history")
	if histFlag == nil {
		t.Fatal("history command has no --history flag")
	}
	if got := histFlag.Value.String(); got != "adfleet_history.db" {
		t.Errorf("history --history default = %q", got)
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"execution failure", &ExecutionError{Message: "dispatch failed"}, 1},
		{"setup failure", &SetupError{Message: "bad flags"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getExitCode(tt.err); got != tt.want {
				t.Errorf("getExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
