//go:build !webgpu

package window

import "errors"

// platformWindow is empty: without the webgpu tag there is no windowing library to drive.
type platformWindow struct{}

var errNoPlatform = errors.New("window: built without GLFW (build with -tags webgpu)")

func newPlatformWindow(*engineWindow) error { return errNoPlatform }

func platformIsRunningCheck(*engineWindow) bool { return false }

func platformPollEvents(*engineWindow) bool { return false }

func platformCloseWindow(*engineWindow) error { return errNotOpen }
