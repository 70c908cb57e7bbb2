package labels

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/ironsheep/medilabel-reader/internal/imaging"
)

// Profile names a preprocessing chain together with the rotation angles
// searched for every region.
type Profile struct {
	Name string `json:"name" yaml:"name" validate:"required"`

	// Angles are tried in this order. Earlier angles win score ties.
	Angles []float64 `json:"angles" yaml:"angles" validate:"required,min=1,dive,gte=0,lt=360"`

	// AutoOrient applies the EXIF orientation when the upload is decoded.
	AutoOrient bool `json:"auto_orient" yaml:"auto_orient"`

	Preprocess imaging.PreprocessOptions `json:"preprocess" yaml:"preprocess"`
}

const (
	ProfileFull   = "full"
	ProfileSimple = "simple"
)

// FullProfile searches seven angles in 45 degree steps and inverts
// light-on-dark regions.
func FullProfile() Profile {
	return Profile{
		Name:       ProfileFull,
		Angles:     []float64{0, 45, 90, 135, 180, 225, 270},
		AutoOrient: true,
		Preprocess: imaging.PreprocessOptions{
			UpscaleFactor: 3,
			MedianSize:    3,
			InvertBright:  true,
		},
	}
}

// SimpleProfile searches the four right angles and sharpens instead of
// inverting.
func SimpleProfile() Profile {
	return Profile{
		Name:   ProfileSimple,
		Angles: []float64{0, 90, 180, 270},
		Preprocess: imaging.PreprocessOptions{
			UpscaleFactor: 3,
			MedianSize:    3,
			SharpenSigma:  1,
		},
	}
}

// Fingerprint identifies the profile's behaviour: its name plus a short hash
// of the angles and preprocessing settings. Two profiles with the same name
// but different settings get different fingerprints.
func (p Profile) Fingerprint() string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%v|%t|%+v", p.Angles, p.AutoOrient, p.Preprocess)))
	return p.Name + "-" + hex.EncodeToString(sum[:6])
}

// Profiles is a set of named profiles.
type Profiles map[string]Profile

// BuiltinProfiles returns the full and simple profiles.
func BuiltinProfiles() Profiles {
	return Profiles{
		ProfileFull:   FullProfile(),
		ProfileSimple: SimpleProfile(),
	}
}

// Get returns the named profile.
func (p Profiles) Get(name string) (Profile, error) {
	prof, ok := p[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown profile %q (available: %v)", name, p.Names())
	}
	return prof, nil
}

// Names returns the profile names in sorted order.
func (p Profiles) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
