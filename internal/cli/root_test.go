package cli

import "testing"

func TestVersionNotEmpty(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
}

func TestExecuteVersion(t *testing.T) {
	rootCmd.SetArgs([]string{"version"})
	out, err := captureStdout(t, rootCmd.Execute)
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	requireContains(t, out, "subwatch dev (none)")
}

func TestConfigDirDefault(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("config-dir")
	if flag == nil {
		t.Fatal("missing --config-dir flag")
	}
	if flag.DefValue != ".subwatch" {
		t.Errorf("default = %q", flag.DefValue)
	}
}
