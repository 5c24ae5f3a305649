package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/emsysdev/accelspec/configs"
	"github.com/emsysdev/accelspec/internal/app"
	"github.com/emsysdev/accelspec/pkg/spatial"
	"github.com/emsysdev/accelspec/pkg/spatial/sim"
)

var (
	configFile string
	verbose    bool
	logLevel   string

	outputDir       string
	infoOnly        bool
	averageInterval int
	maxFrequency    int
	calcMax         bool
	wavOut          bool
	simulate        bool
)

// rootCmd represents the base command; running it starts the capture
// pipeline.
var rootCmd = &cobra.Command{
	Use:   "accelspec",
	Short: "Triaxial accelerometer spectral logger",
	Long: `Continuously samples a triaxial accelerometer, converts each second of
samples into an amplitude spectrum per axis, averages spectra over a
configurable window and appends one summary row per window to rotating
per-day CSV files.

Key features:
- Lock-free producer/consumer frame pipeline sized for ~100s of headroom
- Real-input FFT amplitude spectra, mean or max window reduction
- Per-day, per-axis CSV output with frequency-bin headers
- Optional detrended raw signal stream to a per-day WAV file
- Optional MQTT mirroring of summary rows`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd, viper.GetViper())
	},
	RunE: runCapture,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default searches ./configs and $HOME/.config/accelspec)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, error)")

	rootCmd.Flags().StringVarP(&outputDir, "output-directory", "d", ".",
		"output directory")
	rootCmd.Flags().BoolVarP(&infoOnly, "info", "i", false,
		"show device info and terminate")
	rootCmd.Flags().IntVarP(&averageInterval, "average-interval", "a", 10,
		"averaging interval in seconds")
	rootCmd.Flags().IntVarP(&maxFrequency, "max-frequency", "m", 150,
		"max. frequency in Hz")
	rootCmd.Flags().BoolVarP(&calcMax, "calcmax", "M", false,
		"calculate maximum instead of average")
	rootCmd.Flags().BoolVarP(&wavOut, "wav", "w", false,
		"store wav file too")
	rootCmd.Flags().BoolVar(&simulate, "simulate", false,
		"use the built-in synthetic sensor instead of hardware")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("output.directory", rootCmd.Flags().Lookup("output-directory"))
	viper.BindPFlag("spectral.average_interval", rootCmd.Flags().Lookup("average-interval"))
	viper.BindPFlag("spectral.max_frequency", rootCmd.Flags().Lookup("max-frequency"))
	viper.BindPFlag("spectral.calcmax", rootCmd.Flags().Lookup("calcmax"))
	viper.BindPFlag("output.wav", rootCmd.Flags().Lookup("wav"))
	viper.BindPFlag("sensor.simulate", rootCmd.Flags().Lookup("simulate"))
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.AddConfigPath(home + "/.config/accelspec")
		}
		viper.AddConfigPath("/etc/accelspec")
		viper.AddConfigPath("./configs")
		viper.SetConfigName("accelspec")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("ACCELSPEC")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	configs.SetDefaults()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}
}

// bindFlags binds each explicitly set cobra flag to its viper key so
// command-line values win over file and environment values.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if f.Changed && !v.IsSet(key) {
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = err
			}
		}
	})
	return bindErr
}

// runCapture loads the configuration and runs the pipeline until an
// interrupt arrives.
func runCapture(cmd *cobra.Command, args []string) error {
	config, err := configs.LoadConfig()
	if err != nil {
		return err
	}
	if err := configs.ValidateConfig(config); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	logger := logging.NewDefaultLogger()

	source, err := newSource(config)
	if err != nil {
		return err
	}

	application, err := app.New(&app.Context{
		Config:   config,
		Source:   source,
		InfoOnly: infoOnly,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return application.Run(ctx)
}

// newSource picks the data source collaborator. Physical sensor
// drivers live outside this module and plug in through spatial.Source;
// the synthetic source covers demos and soak testing.
func newSource(config *configs.Config) (spatial.Source, error) {
	if !config.Sensor.Simulate {
		return nil, fmt.Errorf("no physical sensor driver is linked into this build; run with --simulate or provide a spatial.Source driver")
	}
	return sim.New(sim.Config{
		Tones: [spatial.NumAxes][]sim.Tone{
			{{FreqHz: 50, Amplitude: 0.001}},
			{{FreqHz: 25, Amplitude: 0.0005}},
			{},
		},
		NoiseAmplitude: 0.0001,
		Seed:           1,
	}), nil
}
