package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		in    string
		want  MaintenanceType
		known bool
	}{
		{"OilChange", OilChange, true},
		{"Oil Change", OilChange, true},
		{"  lube ", OilChange, true},
		{"tire-rotation", TireRotation, true},
		{"Smog Check", Inspection, true},
		{"BRAKE_SERVICE", BrakeService, true},
		{"tune-up", Repair, true},
		{"detailing", Other, false},
		{"", Other, false},
	}
	for _, tc := range cases {
		got, ok := Canonicalize(tc.in)
		assert.Equal(t, tc.want, got, tc.in)
		assert.Equal(t, tc.known, ok, tc.in)
	}
}

func TestMediaTypeForExt(t *testing.T) {
	assert.Equal(t, MediaTypePDF, MediaTypeForExt(".PDF"))
	assert.Equal(t, MediaTypeJPEG, MediaTypeForExt("jpeg"))
	assert.Equal(t, "", MediaTypeForExt("heic"))
	assert.True(t, IsSupportedMediaType(MediaTypePNG))
	assert.False(t, IsSupportedMediaType("image/gif"))
}
