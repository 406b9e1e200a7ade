package hardware

import (
	"fmt"
	"io/ioutil"
	"os"
	"time"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"

	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/diffdrive"
	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/mux"
	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/picobldc"
	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/sensor"
)

type Config struct {
	// Simulate replaces every device with a simulated or dummy one.
	Simulate bool `yaml:"simulate"`

	Geometry     diffdrive.Geometry `yaml:"geometry"`
	Acceleration int                `yaml:"acceleration"`

	I2CBus string `yaml:"i2c_bus"`

	MotorBoardAddr    int           `yaml:"motor_board_addr"`
	LeftMotorChannel  int           `yaml:"left_motor_channel"`
	RightMotorChannel int           `yaml:"right_motor_channel"`
	MotorWatchdog     time.Duration `yaml:"motor_watchdog"`
	TachoPollPeriod   time.Duration `yaml:"tacho_poll_period"`

	MuxAddr         int `yaml:"mux_addr"`
	RangerAddr      int `yaml:"ranger_addr"`
	FrontRangerPort int `yaml:"front_ranger_port"`
	SideRangerPort  int `yaml:"side_ranger_port"`

	LightSPIDevice string `yaml:"light_spi_device"`
	LightChannel   int    `yaml:"light_channel"`

	ScreenDevice string `yaml:"screen_device"`
	SoundDir     string `yaml:"sound_dir"`
}

func DefaultConfig() Config {
	return Config{
		Geometry:     diffdrive.DefaultGeometry(),
		Acceleration: diffdrive.DefaultAcceleration,

		I2CBus: "/dev/i2c-1",

		MotorBoardAddr:    picobldc.DefaultAddr,
		LeftMotorChannel:  0,
		RightMotorChannel: 1,
		MotorWatchdog:     time.Second,
		TachoPollPeriod:   50 * time.Millisecond,

		MuxAddr:         mux.DefaultAddr,
		RangerAddr:      sensor.SRF08DefaultAddr,
		FrontRangerPort: mux.PortFrontRanger,
		SideRangerPort:  mux.PortSideRanger,

		LightSPIDevice: "/dev/spidev0.0",
		LightChannel:   0,

		ScreenDevice: "/dev/fb1",
		SoundDir:     "/sounds",
	}
}

// LoadConfig reads the YAML config at path over the defaults.  A missing file
// is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		fmt.Println("HW: no config at", path, "using defaults")
		return cfg, nil
	} else if err != nil {
		return cfg, errors.Wrap(err, "reading config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing %s", path)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if err := c.Geometry.Validate(); err != nil {
		return err
	}
	if c.Acceleration <= 0 {
		return errors.Errorf("acceleration must be positive, got %d", c.Acceleration)
	}
	if c.LeftMotorChannel == c.RightMotorChannel {
		return errors.Errorf("left and right motors both on channel %d", c.LeftMotorChannel)
	}
	if c.FrontRangerPort == c.SideRangerPort {
		return errors.Errorf("front and side rangers both on mux port %d", c.FrontRangerPort)
	}
	return nil
}

const DefaultConfigPath = "/etc/diffdrive.yaml"

// LoadConfigFromEnv loads the file named by DIFFDRIVE_CONFIG (or the default
// path).  Setting DIFFDRIVE_SIMULATE forces simulated hardware.
func LoadConfigFromEnv() (Config, error) {
	path := os.Getenv("DIFFDRIVE_CONFIG")
	if path == "" {
		path = DefaultConfigPath
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return cfg, err
	}
	if os.Getenv("DIFFDRIVE_SIMULATE") != "" {
		cfg.Simulate = true
	}
	return cfg, nil
}

// WriteInUse records the config actually in use, for post-run debugging.
func (c Config) WriteInUse(path string) error {
	data, err := yaml.Marshal(&c)
	if err != nil {
		return errors.Wrap(err, "marshalling config")
	}
	return errors.Wrapf(ioutil.WriteFile(path, data, 0666), "writing %s", path)
}
