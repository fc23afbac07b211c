package wrappers

import (
	"fmt"
	"time"

	"github.com/emer/etable/etensor"
	"github.com/samuelfneumann/msgym"
	"github.com/samuelfneumann/msgym/gdict"
	"github.com/samuelfneumann/msgym/internal/log"
	"github.com/samuelfneumann/msgym/obsproc"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// ObsConfig configures the observation processing of a ManiSkill2Obs
// wrapper
type ObsConfig struct {
	// ImgSize is the size RGB-D images are resized to. If nil, images
	// keep the camera resolution.
	ImgSize *obsproc.ImageSize `yaml:"img_size"`

	// NPoints is the number of points point clouds are downsampled to
	NPoints int `yaml:"n_points"`

	// NGoalPoints is the number of goal points added to point clouds.
	// Values <= 0 disable goal points.
	NGoalPoints int `yaml:"n_goal_points"`

	// ObsFrame is the reference frame of point cloud observations, one
	// of base, world or ee
	ObsFrame string `yaml:"obs_frame"`

	// SkipDownsample disables point cloud downsampling, for simulators
	// that preprocess point clouds themselves
	SkipDownsample bool `yaml:"skip_downsample"`

	// IgnoreDones makes Step always report episodes as ongoing
	IgnoreDones bool `yaml:"ignore_dones"`

	// FixSeed, if not nil, is the level every episode is reset to. It
	// also seeds point cloud downsampling.
	FixSeed *int `yaml:"fix_seed"`
}

// DefaultObsConfig returns the default observation configuration
func DefaultObsConfig() ObsConfig {
	return ObsConfig{
		NPoints:     1200,
		NGoalPoints: -1,
		ObsFrame:    string(obsproc.FrameBase),
	}
}

// ManiSkill2Obs converts the observations of a ManiSkill2 environment
// according to its observation mode:
//
//	state      observations are returned unchanged
//	rgbd       see obsproc.RGBD
//	pointcloud see obsproc.PointCloud
//	particles  see obsproc.Particles
//
// Observations of any other mode, and particle observations without
// particles, are returned unchanged. Render normalises rendered images
// to H x W x 3 uint8 tensors.
type ManiSkill2Obs struct {
	Wrapper

	cfg     ObsConfig
	obsMode string
	pcd     obsproc.PointCloudConfig
	rng     *rand.Rand

	logger *zap.Logger
}

// NewManiSkill2Obs returns a new ManiSkill2Obs wrapper. An unknown
// ObsFrame is an error wrapping obsproc.ErrUnknownFrame.
func NewManiSkill2Obs(env msgym.Environment, cfg ObsConfig) (*ManiSkill2Obs,
	error) {
	frame, err := obsproc.ParseFrame(cfg.ObsFrame)
	if err != nil {
		return nil, fmt.Errorf("newManiSkill2Obs: %w", err)
	}

	obsMode := msgym.ObsMode(env)
	if obsMode == msgym.ObsModePointCloud && !cfg.SkipDownsample &&
		cfg.NPoints <= 0 {
		return nil, fmt.Errorf("newManiSkill2Obs: n_points must be positive, "+
			"got %v", cfg.NPoints)
	}
	if cfg.ImgSize != nil && (cfg.ImgSize.Height <= 0 ||
		cfg.ImgSize.Width <= 0) {
		return nil, fmt.Errorf("newManiSkill2Obs: invalid image size %vx%v",
			cfg.ImgSize.Width, cfg.ImgSize.Height)
	}

	seed := uint64(time.Now().UnixNano())
	if cfg.FixSeed != nil {
		seed = uint64(*cfg.FixSeed)
	}

	pcd := obsproc.DefaultPointCloudConfig()
	pcd.Frame = frame
	pcd.NPoints = cfg.NPoints
	pcd.NGoalPoints = cfg.NGoalPoints
	pcd.SkipDownsample = cfg.SkipDownsample

	return &ManiSkill2Obs{
		Wrapper: Wrapper{env},
		cfg:     cfg,
		obsMode: obsMode,
		pcd:     pcd,
		rng:     rand.New(rand.NewSource(seed)),
		logger: log.Provide().With(zap.String("wrapper", "ManiSkill2Obs"),
			zap.String("env", env.Name()), zap.String("obsMode", obsMode)),
	}, nil
}

// Name gets the name of the environment
func (m *ManiSkill2Obs) Name() string {
	return fmt.Sprintf("ManiSkill2Obs(%v)(%v)", m.obsMode,
		m.Environment.Name())
}

// Seed seeds the wrapped environment and the sampler used for point
// cloud downsampling
func (m *ManiSkill2Obs) Seed(seed int) ([]int, error) {
	m.rng.Seed(uint64(seed))
	return m.Environment.Seed(seed)
}

// Observation converts a raw observation of the wrapped environment
func (m *ManiSkill2Obs) Observation(obs *gdict.Dict) (*gdict.Dict, error) {
	switch m.obsMode {
	case msgym.ObsModeRGBD:
		return obsproc.RGBD(obs, m.cfg.ImgSize)

	case msgym.ObsModePointCloud:
		return obsproc.PointCloud(obs, m.pcd, m.rng)

	case msgym.ObsModeParticles:
		if !obs.Has("particles") {
			return obs, nil
		}
		return obsproc.Particles(obs)

	default:
		return obs, nil
	}
}

// Reset resets the environment, to the fixed level if one is
// configured, and returns the converted observation
func (m *ManiSkill2Obs) Reset(opts ...msgym.ResetOption) (*gdict.Dict,
	error) {
	if m.cfg.FixSeed != nil {
		opts = append(opts[:len(opts):len(opts)],
			msgym.WithLevel(*m.cfg.FixSeed))
	}
	obs, err := m.Environment.Reset(opts...)
	if err != nil {
		return nil, err
	}
	obs, err = m.Observation(obs)
	if err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}
	return obs, nil
}

// Step takes one environmental step and returns the converted
// observation
func (m *ManiSkill2Obs) Step(a *mat.VecDense) (*gdict.Dict, float64, bool,
	*gdict.Dict, error) {
	obs, reward, done, info, err := m.Environment.Step(a)
	if err != nil {
		return nil, 0, false, nil, err
	}
	obs, err = m.Observation(obs)
	if err != nil {
		return nil, 0, false, nil, fmt.Errorf("step: %w", err)
	}
	if m.cfg.IgnoreDones {
		done = false
	}
	return obs, reward, done, info, nil
}

// GetObs returns the converted current observation
func (m *ManiSkill2Obs) GetObs() (*gdict.Dict, error) {
	obs, err := msgym.GetObs(m.Environment)
	if err != nil {
		return nil, err
	}
	obs, err = m.Observation(obs)
	if err != nil {
		return nil, fmt.Errorf("getObs: %w", err)
	}
	return obs, nil
}

// Render renders the environment. Human rendering returns nil. The
// rgb_array and color_image modes both render an rgb_array; any other
// mode is forwarded unchanged. The rendered image is returned as an
// H x W x 3 uint8 tensor.
func (m *ManiSkill2Obs) Render(mode string) (interface{}, error) {
	if mode == msgym.RenderHuman {
		_, err := m.Environment.Render(mode)
		return nil, err
	}

	if mode == msgym.RenderColorImage {
		mode = msgym.RenderRGBArray
	}
	img, err := m.Environment.Render(mode)
	if err != nil {
		return nil, err
	}
	out, err := NormalizeImage(img)
	if err != nil {
		m.logger.Warn("could not normalise rendered image", zap.Error(err))
		return nil, fmt.Errorf("render: %w", err)
	}
	return out, nil
}

// NormalizeImage converts a rendered image to an H x W x 3 uint8
// tensor. A dictionary of images yields its "world" image, or else
// its "main" image; a dictionary of camera outputs yields its "rgb"
// image. A leading batch dimension of 1 is removed. Floating point
// images are clipped to [0, 1] and scaled to [0, 255].
func NormalizeImage(img interface{}) (*etensor.Uint8, error) {
	if d, ok := img.(*gdict.Dict); ok {
		switch {
		case d.Has("world"):
			img, _ = d.Get("world")
		case d.Has("main"):
			img, _ = d.Get("main")
		default:
			return nil, fmt.Errorf("normalizeImage: no world or main image "+
				"in %v", d.Keys())
		}
	}
	if d, ok := img.(*gdict.Dict); ok {
		rgb, err := d.Tensor("rgb")
		if err != nil {
			return nil, fmt.Errorf("normalizeImage: %w", err)
		}
		img = rgb
	}

	t, ok := img.(etensor.Tensor)
	if !ok {
		return nil, fmt.Errorf("normalizeImage: expected image tensor, got %T",
			img)
	}

	shape := gdict.Shape(t)
	if len(shape) == 4 {
		if shape[0] != 1 {
			return nil, fmt.Errorf("normalizeImage: expected batch of one "+
				"image, got %v", shape[0])
		}
		shape = shape[1:]
	}
	if len(shape) != 3 {
		return nil, fmt.Errorf("normalizeImage: expected H x W x C image, "+
			"got %v", gdict.Shape(t))
	}

	var isFloat bool
	switch t.(type) {
	case *etensor.Float32, *etensor.Float64:
		isFloat = true
	}

	h, w, c := shape[0], shape[1], shape[2]
	outC := c
	if outC > 3 {
		outC = 3
	}
	out := gdict.NewUint8([]int{h, w, outC}, nil)
	for p := 0; p < h*w; p++ {
		for ch := 0; ch < outC; ch++ {
			v := t.FloatVal1D(p*c + ch)
			if isFloat {
				v = clip(v, 0, 1) * 255
			}
			out.Values[p*outC+ch] = uint8(v)
		}
	}
	return out, nil
}

func clip(v, low, high float64) float64 {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
