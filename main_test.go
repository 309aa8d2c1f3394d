package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

const shortConfig = `kind: avoidholes
def:
  env:
    gridWidth: 5
    gridDepth: 4
    maxSteps: 50
  trainingDeadline:
    duration: 300ms
`

func execute(args ...string) (string, error) {
	out := &bytes.Buffer{}
	cmd := newRootCmd()
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestGenerateCmd(t *testing.T) {
	Convey("When generating floors", t, func() {
		path := filepath.Join(t.TempDir(), "config.yaml")
		So(os.WriteFile(path, []byte(shortConfig), 0o644), ShouldBeNil)

		out, err := execute("generate", "--config", path, "--seed", "3", "--count", "2")
		So(err, ShouldBeNil)

		Convey("Each floor is printed with its placement", func() {
			So(strings.Count(out, "holes: "), ShouldEqual, 2)
			So(strings.Count(out, "A "), ShouldBeGreaterThanOrEqualTo, 2)
			So(strings.Count(out, "T "), ShouldBeGreaterThanOrEqualTo, 2)
		})

		Convey("Generation is reproducible by seed", func() {
			again, err := execute("generate", "--config", path, "--seed", "3", "--count", "2")
			So(err, ShouldBeNil)
			So(again, ShouldEqual, out)
		})
	})

	Convey("An explicitly named config must exist", t, func() {
		_, err := execute("generate", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
		So(err, ShouldNotBeNil)
	})
}

func TestTrainCmd(t *testing.T) {
	Convey("When training until the configured deadline", t, func() {
		path := filepath.Join(t.TempDir(), "config.yaml")
		So(os.WriteFile(path, []byte(shortConfig), 0o644), ShouldBeNil)

		out, err := execute("train", "--config", path, "--addr", "", "--workers", "2", "--policy", "random")
		So(err, ShouldBeNil)
		So(out, ShouldContainSubstring, "episodes: ")
	})

	Convey("Unknown policies are rejected", t, func() {
		path := filepath.Join(t.TempDir(), "config.yaml")
		So(os.WriteFile(path, []byte(shortConfig), 0o644), ShouldBeNil)

		_, err := execute("train", "--config", path, "--addr", "", "--policy", "greedy")
		So(err, ShouldNotBeNil)
	})
}
