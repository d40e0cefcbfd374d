package builtins

import "testing"

func testRegistry() *Registry {
	return Default(func() string { return "/home/u" })
}

func TestCdExpandsHome(t *testing.T) {
	cd, ok := testRegistry().Lookup("cd")
	if !ok {
		t.Fatal("cd not registered")
	}
	res := cd.Run([]string{"~/x"})
	if res.Effect != ChangeDirectory {
		t.Fatalf("expected ChangeDirectory, got %s", res.Effect)
	}
	if res.Path != "/home/u/x" {
		t.Errorf("expected /home/u/x, got %q", res.Path)
	}
}

func TestCdWithoutArgsGoesHome(t *testing.T) {
	cd, _ := testRegistry().Lookup("cd")
	if res := cd.Run(nil); res.Path != "/home/u" {
		t.Errorf("expected /home/u, got %q", res.Path)
	}
}

func TestCdPlainPath(t *testing.T) {
	cd, _ := testRegistry().Lookup("cd")
	if res := cd.Run([]string{"/tmp"}); res.Path != "/tmp" {
		t.Errorf("expected /tmp, got %q", res.Path)
	}
}

func TestEffects(t *testing.T) {
	reg := testRegistry()
	tests := []struct {
		name string
		want Effect
	}{
		{"exit", Exit},
		{"liberamoita", ClearBackground},
		{"armageddon", ClearBackgroundAndExit},
		{"jobs", ShowJobs},
		{"pwd", PrintDirectory},
	}
	for _, tt := range tests {
		b, ok := reg.Lookup(tt.name)
		if !ok {
			t.Errorf("%s not registered", tt.name)
			continue
		}
		res := b.Run(nil)
		if res.Effect != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.want, res.Effect)
		}
		if !res.InCaller {
			t.Errorf("%s: expected result from the calling process", tt.name)
		}
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, ok := testRegistry().Lookup("ls"); ok {
		t.Error("ls should not be a builtin")
	}
}

func TestAllSorted(t *testing.T) {
	all := testRegistry().All()
	for i := 1; i < len(all); i++ {
		if all[i-1].Name() > all[i].Name() {
			t.Errorf("builtins not sorted: %s before %s", all[i-1].Name(), all[i].Name())
		}
	}
}
