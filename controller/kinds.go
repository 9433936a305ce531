package controller

import "strings"

// AnimationKind is the subtype of a raw-framed animation controller.
type AnimationKind uint16

const (
	PositionKeyFrames       AnimationKind = 1
	RotationKeyFrames       AnimationKind = 2
	KeyFrameAnimStartParams AnimationKind = 3
	PositionKeyFrames2      AnimationKind = 4
	RotationKeyFrames2      AnimationKind = 5
	MeshAnimationData       AnimationKind = 6
	TextureAnimationData    AnimationKind = 7
)

var animationKindNames = map[AnimationKind]string{
	PositionKeyFrames:       "PositionKeyFrames",
	RotationKeyFrames:       "RotationKeyFrames",
	KeyFrameAnimStartParams: "KeyFrameAnimStartParams",
	PositionKeyFrames2:      "PositionKeyFrames2",
	RotationKeyFrames2:      "RotationKeyFrames2",
	MeshAnimationData:       "MeshAnimationData",
	TextureAnimationData:    "TextureAnimationData",
}

// String returns the controller name of the kind, or an empty string if the
// kind is not known.
func (k AnimationKind) String() string {
	return animationKindNames[k]
}

// AnimationKindOf returns the kind whose controller is named name, ignoring
// case.
func AnimationKindOf(name string) (AnimationKind, bool) {
	for k, n := range animationKindNames {
		if strings.EqualFold(n, name) {
			return k, true
		}
	}
	return 0, false
}
