package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := rootCmd()

	for _, name := range []string{"version", "migrate", "seed", "import", "export", "backup", "doctor"} {
		if _, _, err := root.Find([]string{name}); err != nil {
			t.Errorf("subcommand %q not registered: %v", name, err)
		}
	}

	for _, args := range [][]string{{"migrate", "down"}, {"migrate", "status"}} {
		cmd, _, err := root.Find(args)
		if err != nil || cmd.Name() != args[1] {
			t.Errorf("subcommand %v not registered", args)
		}
	}

	if root.PersistentFlags().Lookup("config") == nil {
		t.Error("expected persistent --config flag")
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"S\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}

	for _, tt := range tests {
		cmd := &cobra.Command{}
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetIn(strings.NewReader(tt.input))

		if got := confirm(cmd, "ok? "); got != tt.want {
			t.Errorf("confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if out.String() != "ok? " {
			t.Errorf("prompt = %q", out.String())
		}
	}
}

func TestSeedCmd_Aborts(t *testing.T) {
	root := rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetIn(strings.NewReader("n\n"))
	root.SetArgs([]string{"seed"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out.String(), "Aborted.") {
		t.Errorf("expected abort message, got %q", out.String())
	}
}

func TestImportCmd_RequiresFile(t *testing.T) {
	root := rootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"import"})

	if err := root.Execute(); err == nil {
		t.Error("expected error without a file argument")
	}
}
