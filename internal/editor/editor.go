package editor

import (
	"os"
	"os/exec"
	"runtime"
)

// Executable returns the name of the user's preferred text editor.
func Executable() string {
	if e := os.Getenv("EDITOR"); e != "" {
		return e
	} else if e := os.Getenv("VISUAL"); e != "" {
		return e
	}

	switch runtime.GOOS {
	case "windows":
		return "notepad"
	case "darwin":
		return "open"
	case "linux":
		if path, err := exec.LookPath("editor"); err == nil {
			return path
		}
	}

	return "vi"
}

// Open launches the editor with the given file attached to the terminal
// and waits for it to exit.
func Open(path string) error {
	cmd := exec.Command(Executable(), path)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	return cmd.Run()
}
