package mathutil

// Camera matrices for the preview renderer. Part files are Y-down, so the
// views flip Y before tilting toward the viewer.
var (
	// FlipY converts the part-file Y-down convention to Y-up.
	FlipY = Mat3Diag(1, -1, 1)

	// ViewIso is the preview camera: Rx(30°) @ Ry(-45°) @ FLIP_Y.
	ViewIso = Mat3Mul(Mat3Mul(RotX(Deg2Rad(30)), RotY(Deg2Rad(-45))), FlipY)

	// ViewFront looks straight down the -Z axis.
	ViewFront = FlipY
)
