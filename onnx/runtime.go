package onnx

import (
	"fmt"
	"os"
	"runtime"

	ort "github.com/yalue/onnxruntime_go"
)

var searchPaths = map[string][]string{
	"linux": {
		"onnxlibs/libonnxruntime.so",
		"/usr/local/lib/libonnxruntime.so",
		"/usr/lib/libonnxruntime.so",
		"/usr/lib/x86_64-linux-gnu/libonnxruntime.so",
	},
	"darwin": {
		"onnxlibs/libonnxruntime.dylib",
		"/usr/local/lib/libonnxruntime.dylib",
		"/opt/homebrew/lib/libonnxruntime.dylib",
	},
	"windows": {
		`onnxlibs\onnxruntime.dll`,
		"onnxruntime.dll",
	},
}

// LibPath picks the ONNX Runtime shared library: override when set, otherwise
// the first well-known location that exists for this OS. It returns "" when
// nothing is known for the OS.
func LibPath(override string) string {
	if override != "" {
		return override
	}
	return firstExisting(searchPaths[runtime.GOOS])
}

// firstExisting falls back to the first candidate so the runtime's own error
// names a concrete path.
func firstExisting(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if len(paths) > 0 {
		return paths[0]
	}
	return ""
}

// Init loads the shared library and creates the process-wide environment.
func Init(libPath string) error {
	if ort.IsInitialized() {
		return nil
	}
	if libPath == "" {
		return fmt.Errorf("no ONNX Runtime library known for %s", runtime.GOOS)
	}
	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX Runtime environment: %w", err)
	}
	return nil
}

func Destroy() error {
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}
