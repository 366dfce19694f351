package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Tom4hawk/ADSBTranslatorService/internal/app"
	"github.com/Tom4hawk/ADSBTranslatorService/internal/avr"
	"github.com/Tom4hawk/ADSBTranslatorService/internal/translator"
)

// bindFlags registers one flag per configuration field, writing into cfg
func bindFlags(fs *pflag.FlagSet, cfg *app.Config) {
	fs.StringVar(&cfg.Source.Type, "source", cfg.Source.Type, "Frame source: tcp, serial or rtlsdr")
	fs.StringVarP(&cfg.Source.Address, "address", "a", cfg.Source.Address, "Receiver address for the tcp source")
	fs.StringVar(&cfg.Source.Format, "format", cfg.Source.Format, "Input format: avr or beast")
	fs.StringVar(&cfg.Source.SerialPort, "serial-port", cfg.Source.SerialPort, "Serial device for the serial source")
	fs.IntVar(&cfg.Source.BaudRate, "baud", cfg.Source.BaudRate, "Serial baud rate")
	fs.DurationVar(&cfg.Source.ReconnectDelay, "reconnect-delay", cfg.Source.ReconnectDelay, "Wait between reconnect attempts")
	fs.Uint32VarP(&cfg.Source.RTLSDR.Frequency, "frequency", "f", cfg.Source.RTLSDR.Frequency, "Frequency to tune to (Hz)")
	fs.Uint32VarP(&cfg.Source.RTLSDR.SampleRate, "sample-rate", "s", cfg.Source.RTLSDR.SampleRate, "Sample rate (Hz)")
	fs.IntVarP(&cfg.Source.RTLSDR.Gain, "gain", "g", cfg.Source.RTLSDR.Gain, "Gain setting (0 for auto)")
	fs.IntVarP(&cfg.Source.RTLSDR.DeviceIndex, "device", "d", cfg.Source.RTLSDR.DeviceIndex, "RTL-SDR device index")

	fs.IntVar(&cfg.Translator.AircraftTTL, "ttl", cfg.Translator.AircraftTTL, "Seconds without messages before an aircraft is dropped")
	fs.BoolVar(&cfg.Translator.FixSingleBitErrors, "fix-errors", cfg.Translator.FixSingleBitErrors, "Correct single bit errors in DF11/DF17 frames")

	fs.StringVarP(&cfg.Output.Listen, "listen", "l", cfg.Output.Listen, "SBS output listen address")
	fs.BoolVar(&cfg.Output.Stdout, "stdout", cfg.Output.Stdout, "Also print SBS lines to stdout")
	fs.StringVar(&cfg.HTTP.Listen, "http", cfg.HTTP.Listen, "HTTP status API listen address (empty disables)")
	fs.StringVar(&cfg.NATS.URL, "nats-url", cfg.NATS.URL, "NATS server URL (empty disables)")
	fs.StringVar(&cfg.NATS.Subject, "nats-subject", cfg.NATS.Subject, "NATS subject for SBS lines")
	fs.StringVar(&cfg.Archive.Dir, "archive-dir", cfg.Archive.Dir, "Directory for the daily SBS archive (empty disables)")
	fs.BoolVarP(&cfg.Archive.UTC, "utc", "u", cfg.Archive.UTC, "Use UTC for archive rotation")
	fs.IntVar(&cfg.Archive.MaxDays, "archive-days", cfg.Archive.MaxDays, "Days of archive to keep (0 keeps all)")
	fs.DurationVar(&cfg.StatsInterval, "stats-interval", cfg.StatsInterval, "Interval between statistics log lines")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose logging")
}

// resolveConfig starts from the defaults, applies the config file when
// given, then re-applies every flag the user set explicitly.
func resolveConfig(flags *pflag.FlagSet, configFile string) (app.Config, error) {
	cfg := app.DefaultConfig()
	if configFile != "" {
		var err error
		cfg, err = app.LoadConfigFile(configFile)
		if err != nil {
			return cfg, err
		}
	}

	overlay := pflag.NewFlagSet("overlay", pflag.ContinueOnError)
	bindFlags(overlay, &cfg)

	var setErr error
	flags.Visit(func(f *pflag.Flag) {
		if overlay.Lookup(f.Name) == nil || setErr != nil {
			return
		}
		if err := overlay.Set(f.Name, f.Value.String()); err != nil {
			setErr = fmt.Errorf("failed to apply flag --%s: %w", f.Name, err)
		}
	})
	return cfg, setErr
}

func newRootCommand() *cobra.Command {
	flagConfig := app.DefaultConfig()
	var configFile string
	var showVersion bool

	rootCmd := &cobra.Command{
		Use:   "adsbtranslator",
		Short: "Mode S / ADS-B to SBS (BaseStation) translator",
		Long: `Translates raw Mode S frames ("*hex;", port 30001 style) into SBS
BaseStation lines served on port 30003.

Frames come from a receiver's raw TCP output, a serial receiver or a local
RTL-SDR dongle. Settings may be given in a YAML file; flags override it.

Example usage:
  adsbtranslator --address 192.168.1.20:30001 --listen :30003
  adsbtranslator --source rtlsdr --gain 40 --http :8080`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				app.ShowVersion(cmd.OutOrStdout())
				return nil
			}

			cfg, err := resolveConfig(cmd.Flags(), configFile)
			if err != nil {
				return err
			}
			return app.NewApplication(cfg).Start()
		},
	}

	bindFlags(rootCmd.Flags(), &flagConfig)
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "YAML configuration file")
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show version information")

	rootCmd.AddCommand(newConvertCommand())
	return rootCmd
}

func newConvertCommand() *cobra.Command {
	var fixErrors, verbose bool
	ttl := app.DefaultAircraftTTL

	cmd := &cobra.Command{
		Use:   "convert [files...]",
		Short: "Translate *hex; frames from files or stdin to SBS lines on stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ttl <= 0 {
				return fmt.Errorf("aircraft TTL must be positive, got %d", ttl)
			}

			logger := logrus.New()
			logger.SetOutput(cmd.ErrOrStderr())
			logger.SetLevel(logrus.WarnLevel)
			if verbose {
				logger.SetLevel(logrus.DebugLevel)
			}

			tr := translator.New(fixErrors, ttl, translator.SystemClock{}, logger)
			out := bufio.NewWriter(cmd.OutOrStdout())
			defer out.Flush()

			if len(args) == 0 {
				return convertStream(cmd.InOrStdin(), tr, out)
			}
			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", path, err)
				}
				err = convertStream(f, tr, out)
				f.Close()
				if err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fixErrors, "fix-errors", false, "Correct single bit errors in DF11/DF17 frames")
	cmd.Flags().IntVar(&ttl, "ttl", ttl, "Seconds without messages before an aircraft is dropped")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
	return cmd
}

// convertStream frames r as AVR text and writes every SBS line to w
func convertStream(r io.Reader, tr *translator.Translator, w io.Writer) error {
	framer := avr.NewFramer()
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		for _, frame := range framer.Feed(buf[:n]) {
			for _, line := range tr.Lines(frame) {
				if _, werr := io.WriteString(w, line+"\n"); werr != nil {
					return fmt.Errorf("failed to write output: %w", werr)
				}
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
	}
}
