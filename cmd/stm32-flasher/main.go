package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/PakapolPolpinich/STM32-Web-Bootloader-via-ESP32/internal/config"
	"github.com/PakapolPolpinich/STM32-Web-Bootloader-via-ESP32/internal/flasher"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	profileFlag      string
	verboseFlag      bool
	portFlag         string
	baudFlag         int
	addressFlag      string
	resetFlag        string
	nrstFlag         string
	boot0Flag        string
	expectIDFlag     string
	ackTimeoutFlag   time.Duration
	eraseTimeoutFlag time.Duration
	syncAttemptsFlag int
	blockSizeFlag    int
)

func main() {
	defaults := config.Default()

	rootCmd := &cobra.Command{
		Use:   "stm32-flasher",
		Short: "Flash firmware to STM32 devices over the UART bootloader",
		Long: `STM32 Flasher programs STM32 microcontrollers through the ROM
bootloader on USART1 (AN3155). It synchronizes with the bootloader,
reads the chip ID, mass-erases flash and writes the image.

Images may be raw .bin files or Intel HEX (.hex) files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
			if verboseFlag {
				log.SetLevel(log.DebugLevel)
			}
			flasher.SetLogger(log.StandardLogger())
		},
	}
	rootCmd.PersistentFlags().StringVar(&profileFlag, "profile", "", "YAML profile with default settings")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Log every frame sent and received")

	// Flash command
	flashCmd := &cobra.Command{
		Use:   "flash <image>",
		Short: "Flash an image to the device",
		Long: `Flash an image to an STM32 device.

The sequence is: reset gate, synchronize, GET ID, mass erase, then
WRITE MEMORY in blocks of up to 256 bytes. Intel HEX files carry their
own load address; raw binaries are written at --address.`,
		Args: cobra.ExactArgs(1),
		RunE: runFlash,
	}
	addConnectionFlags(flashCmd, defaults)
	flashCmd.Flags().StringVarP(&addressFlag, "address", "a",
		fmt.Sprintf("0x%08X", defaults.Address), "Load address for raw images")
	flashCmd.Flags().IntVar(&blockSizeFlag, "block-size", defaults.BlockSize, "Bytes per WRITE MEMORY block (1-256)")

	// Erase command
	eraseCmd := &cobra.Command{
		Use:   "erase",
		Short: "Mass erase the device flash",
		Args:  cobra.NoArgs,
		RunE:  runErase,
	}
	addConnectionFlags(eraseCmd, defaults)

	// Info command
	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Show device info",
		Long: `Synchronize with the bootloader and report the chip ID.

Without --port every serial port is scanned, running the --reset
method before each probe.`,
		Args: cobra.NoArgs,
		RunE: runInfo,
	}
	addConnectionFlags(infoCmd, defaults)

	// Version command
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("stm32-flasher %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available serial ports",
		RunE:  runList,
	}

	// Profile command
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Print a profile with the default settings",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Print(config.Example())
		},
	}

	rootCmd.AddCommand(flashCmd, eraseCmd, infoCmd, versionCmd, listCmd, profileCmd)

	if err := rootCmd.Execute(); err != nil {
		if stage := flasher.FailedStage(err); stage != "unknown" {
			log.Errorf("failed during %s: %v", stage, err)
		} else {
			log.Error(err)
		}
		os.Exit(1)
	}
}

func addConnectionFlags(cmd *cobra.Command, defaults config.Profile) {
	cmd.Flags().StringVarP(&portFlag, "port", "p", "", "Serial port (auto-detect if not specified)")
	cmd.Flags().IntVarP(&baudFlag, "baud", "b", defaults.Baud, "Baud rate")
	cmd.Flags().StringVar(&resetFlag, "reset", defaults.Reset, "Reset method: prompt, dtr, gpio or none")
	cmd.Flags().StringVar(&nrstFlag, "nrst-gpio", "", "Host GPIO driving NRST (reset gpio)")
	cmd.Flags().StringVar(&boot0Flag, "boot0-gpio", "", "Host GPIO driving BOOT0 (reset gpio)")
	cmd.Flags().StringVar(&expectIDFlag, "expect-id", "", "Abort unless the chip reports this ID, e.g. 0410")
	cmd.Flags().DurationVar(&ackTimeoutFlag, "ack-timeout", defaults.AckTimeout, "Time to wait for each ACK")
	cmd.Flags().DurationVar(&eraseTimeoutFlag, "erase-timeout", defaults.EraseTimeout, "Time to wait for mass erase to finish")
	cmd.Flags().IntVar(&syncAttemptsFlag, "sync-attempts", defaults.SyncAttempts, "Reset and sync attempts while the bootloader is silent")
}

// loadProfile returns the profile file (or defaults) with every flag that was
// set on the command line applied on top.
func loadProfile(cmd *cobra.Command) (config.Profile, error) {
	p := config.Default()
	if profileFlag != "" {
		var err error
		if p, err = config.Load(profileFlag); err != nil {
			return p, err
		}
		log.Debugf("loaded profile %s", profileFlag)
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		p.Port = portFlag
	}
	if flags.Changed("baud") {
		p.Baud = baudFlag
	}
	if flags.Changed("address") {
		addr, err := strconv.ParseUint(addressFlag, 0, 32)
		if err != nil {
			return p, fmt.Errorf("invalid address %q: %w", addressFlag, err)
		}
		p.Address = uint32(addr)
	}
	if flags.Changed("reset") {
		p.Reset = resetFlag
	}
	if flags.Changed("nrst-gpio") {
		p.NRSTPin = nrstFlag
	}
	if flags.Changed("boot0-gpio") {
		p.BOOT0Pin = boot0Flag
	}
	if flags.Changed("expect-id") {
		p.ExpectID = expectIDFlag
	}
	if flags.Changed("ack-timeout") {
		p.AckTimeout = ackTimeoutFlag
	}
	if flags.Changed("erase-timeout") {
		p.EraseTimeout = eraseTimeoutFlag
	}
	if flags.Changed("sync-attempts") {
		p.SyncAttempts = syncAttemptsFlag
	}
	if flags.Changed("block-size") {
		p.BlockSize = blockSizeFlag
	}

	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}
