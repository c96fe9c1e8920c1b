package camera

type CameraBuilderOption func(*cameraImpl)

// WithLookAt places the camera at eye, looking at target, with the given up vector.
//
// Parameters:
//   - eye: camera position in world space
//   - target: the point to look at
//   - up: the up vector
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera placement
func WithLookAt(eye, target, up [3]float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.eye, c.target, c.up = eye, target, up
	}
}

// WithFov sets the camera's field of view in radians.
//
// Parameters:
//   - fov: field of view in radians
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's field of view
func WithFov(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fov = fov
	}
}

// WithSize sets the camera's aspect ratio from a viewport size. A zero height leaves the aspect
// unchanged.
//
// Parameters:
//   - width: viewport width in pixels
//   - height: viewport height in pixels
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's aspect ratio
func WithSize(width, height uint32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if height != 0 {
			c.aspect = float32(width) / float32(height)
		}
	}
}

// WithNear sets the near clipping plane distance.
//
// Parameters:
//   - near: near plane distance
//
// Returns:
//   - CameraBuilderOption: a function that sets the near plane
func WithNear(near float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.near = near
	}
}

// WithFar sets the far clipping plane distance.
//
// Parameters:
//   - far: far plane distance
//
// Returns:
//   - CameraBuilderOption: functional option to set the far plane
func WithFar(far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.far = far
	}
}
