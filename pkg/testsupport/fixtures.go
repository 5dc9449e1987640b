package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// UpdateGoldenEnv names the environment variable that makes
// CompareWithGolden rewrite golden files instead of comparing.
const UpdateGoldenEnv = "METAFIELDS_UPDATE_GOLDEN"

// WriteGolden writes data to path, creating parent directories.
func WriteGolden(t *testing.T, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("golden %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("golden %s: %v", path, err)
	}
}

// CompareWithGolden fails t when actual differs from the golden file at
// path, naming the first differing line. A missing golden file is created
// from actual, and every file is rewritten when UpdateGoldenEnv is set.
func CompareWithGolden(t *testing.T, path string, actual []byte) {
	t.Helper()

	if os.Getenv(UpdateGoldenEnv) != "" {
		WriteGolden(t, path, actual)
		return
	}

	expected, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		t.Logf("creating golden file %s", path)
		WriteGolden(t, path, actual)
		return
	}
	if err != nil {
		t.Fatalf("golden %s: %v", path, err)
	}

	if line, want, got, ok := firstDiff(string(expected), string(actual)); ok {
		t.Errorf("%s differs at line %d:\nwant: %q\ngot:  %q\n\nfull output:\n%s", path, line, want, got, actual)
	}
}

func firstDiff(expected, actual string) (line int, want, got string, differs bool) {
	if expected == actual {
		return 0, "", "", false
	}
	wantLines := strings.Split(expected, "\n")
	gotLines := strings.Split(actual, "\n")
	for i := 0; i < len(wantLines) || i < len(gotLines); i++ {
		if i < len(wantLines) {
			want = wantLines[i]
		} else {
			want = ""
		}
		if i < len(gotLines) {
			got = gotLines[i]
		} else {
			got = ""
		}
		if i >= len(wantLines) || i >= len(gotLines) || want != got {
			return i + 1, want, got, true
		}
	}
	return 0, "", "", false
}

// TempFile writes content to a file inside a per-test temporary directory
// that is removed when the test ends.
func TempFile(t *testing.T, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to write temp file %s: %v", path, err)
	}

	return path
}

// FixturePath constructs a path to a fixture file relative to the testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// GoldenPath constructs a path to a golden file relative to the testdata directory.
func GoldenPath(filename string) string {
	return filepath.Join("testdata", "golden", filename)
}
