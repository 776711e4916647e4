package redact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArgsRedactsFlagValues(t *testing.T) {
	r := New()
	args := []string{"--recover", "/data/a.fmp12", "-target_filename", "/data/a_recovered.fmp12",
		"-encryption_key", "s3cret", "-username", "admin", "-password", "pw"}

	got := r.Args(args)

	assert.Equal(t, []string{"--recover", "/data/a.fmp12", "-target_filename", "/data/a_recovered.fmp12",
		"-encryption_key", Placeholder, "-username", "admin", "-password", Placeholder}, got)
	assert.Equal(t, "s3cret", args[5], "input must not be modified")
}

func TestStringRedactsKnownSecrets(t *testing.T) {
	r := New("s3cret", "", "s3cret-longer")

	assert.Equal(t, "key="+Placeholder+" and "+Placeholder, r.String("key=s3cret-longer and s3cret"))
	assert.Equal(t, "nothing here", r.String("nothing here"))
}

func TestCommandLine(t *testing.T) {
	r := New("hunter2")
	line := r.CommandLine("FMDeveloperTool", []string{"--recover", "/My Files/a.fmp12", "-e", "hunter2"})

	assert.Equal(t, "FMDeveloperTool --recover '/My Files/a.fmp12' -e "+Placeholder, line)
	assert.NotContains(t, line, "hunter2")
}
