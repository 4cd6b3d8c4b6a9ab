package main

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/PakapolPolpinich/STM32-Web-Bootloader-via-ESP32/internal/config"
	"github.com/PakapolPolpinich/STM32-Web-Bootloader-via-ESP32/internal/detect"
	"github.com/PakapolPolpinich/STM32-Web-Bootloader-via-ESP32/internal/flasher"
	"github.com/PakapolPolpinich/STM32-Web-Bootloader-via-ESP32/internal/image"
	"github.com/PakapolPolpinich/STM32-Web-Bootloader-via-ESP32/internal/reset"
	"github.com/PakapolPolpinich/STM32-Web-Bootloader-via-ESP32/internal/serial"
)

func runFlash(cmd *cobra.Command, args []string) error {
	p, err := loadProfile(cmd)
	if err != nil {
		return err
	}

	img, err := image.Load(args[0])
	if err != nil {
		return err
	}

	address := p.Address
	if img.HasAddress && !cmd.Flags().Changed("address") {
		address = img.Address
	}
	log.Infof("image: %s (%d bytes at 0x%08X)", args[0], len(img.Data), address)

	bar := progressbar.NewOptions(len(img.Data),
		progressbar.OptionSetDescription("Flashing"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(100),
		progressbar.OptionClearOnFinish(),
	)

	conn, err := connect(p, progressSink(bar))
	if err != nil {
		return err
	}
	defer conn.Device.Close()

	if err := conn.Session.Flash(img.Data, address); err != nil {
		fmt.Println()
		return err
	}
	log.Infof("flash complete")

	if mode, _ := reset.ParseMode(p.Reset); mode == reset.ModeDTR {
		log.Infof("resetting device...")
		if err := conn.Device.HardReset(); err != nil {
			log.Warnf("reset failed: %v", err)
		}
	}
	return nil
}

func runErase(cmd *cobra.Command, args []string) error {
	p, err := loadProfile(cmd)
	if err != nil {
		return err
	}

	conn, err := connect(p, logSink)
	if err != nil {
		return err
	}
	defer conn.Device.Close()

	if p.ExpectID != "" {
		if _, err := conn.Session.GetChipID(); err != nil {
			return err
		}
	}
	if err := conn.Session.EraseAll(); err != nil {
		return err
	}
	log.Infof("erase complete")
	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	p, err := loadProfile(cmd)
	if err != nil {
		return err
	}

	opts, err := p.Options()
	if err != nil {
		return err
	}
	gate, err := gateFunc(p)
	if err != nil {
		return err
	}

	if p.Port != "" {
		// Check specific port
		result, err := detect.DetectOnPort(p.Port, p.Baud, gate, append(opts, flasher.WithSink(logSink))...)
		if err != nil {
			return fmt.Errorf("failed to detect device on %s: %w", p.Port, err)
		}
		printDeviceInfo(result)
		return nil
	}

	// Auto-detect
	log.Infof("scanning for STM32 bootloaders...")
	devices, err := detect.ListDevices(p.Baud, gate, opts...)
	if err != nil {
		return err
	}

	if len(devices) == 0 {
		fmt.Println("No STM32 bootloaders found")
		return nil
	}

	fmt.Printf("Found %d device(s):\n\n", len(devices))
	for i, d := range devices {
		fmt.Printf("Device %d:\n", i+1)
		printDeviceInfo(&d)
		fmt.Println()
	}
	return nil
}

func printDeviceInfo(d *detect.Result) {
	fmt.Printf("  Port:     %s\n", d.Port)
	fmt.Printf("  Chip:     %s\n", d.ChipName)
	if len(d.ChipID) > 0 {
		fmt.Printf("  Chip ID:  0x%s\n", d.ChipID)
	}
}

func runList(cmd *cobra.Command, args []string) error {
	ports, err := serial.ListPorts()
	if err != nil {
		return err
	}

	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}

	fmt.Println("Available serial ports:")
	for _, p := range ports {
		fmt.Printf("  %s\n", p)
	}

	return nil
}

// connect returns a synchronized session on the profile's port, or on the
// first port whose bootloader answers when none is set.
func connect(p config.Profile, sink flasher.EventSink) (*detect.Connection, error) {
	opts, err := p.Options()
	if err != nil {
		return nil, err
	}
	opts = append(opts, flasher.WithSink(sink))

	gate, err := gateFunc(p)
	if err != nil {
		return nil, err
	}

	if p.Port == "" {
		log.Infof("detecting device...")
		conn, err := detect.Connect(p.Baud, gate, opts...)
		if err != nil {
			return nil, fmt.Errorf("device detection failed: %w", err)
		}
		log.Infof("found bootloader on %s @ %d baud (8E1)", conn.Port, p.Baud)
		return conn, nil
	}

	log.Infof("connecting to bootloader on %s @ %d baud (8E1)...", p.Port, p.Baud)
	return detect.ConnectOnPort(p.Port, p.Baud, gate, opts...)
}

// gateFunc maps the profile's reset mode to a per-port gate.
func gateFunc(p config.Profile) (detect.GateFunc, error) {
	mode, err := reset.ParseMode(p.Reset)
	if err != nil {
		return nil, err
	}

	switch mode {
	case reset.ModeDTR:
		return detect.ModemLineGate, nil
	case reset.ModeGPIO:
		gate, err := reset.GPIO(p.NRSTPin, p.BOOT0Pin)
		if err != nil {
			return nil, err
		}
		return detect.FixedGate(gate), nil
	case reset.ModeNone:
		return detect.FixedGate(nil), nil
	default:
		return detect.FixedGate(reset.Prompt(os.Stdin, os.Stderr)), nil
	}
}

func logSink(ev flasher.Event) {
	switch ev.Kind {
	case flasher.EventSynchronized:
		log.Infof("connected")
	case flasher.EventChipIDReceived:
		log.Infof("chip id 0x%s (%s)", ev.ChipID, ev.ChipID.Name())
	case flasher.EventEraseStarted:
		log.Infof("erasing flash...")
	case flasher.EventEraseComplete:
		log.Infof("flash erased")
	case flasher.EventUploadComplete:
		log.Infof("wrote %d bytes", ev.TotalBytes)
	case flasher.EventFailed:
		log.Debugf("session failed at %s: %v", ev.Stage, ev.Err)
	}
}

// progressSink drives bar from chunk events and logs everything else.
func progressSink(bar *progressbar.ProgressBar) flasher.EventSink {
	return func(ev flasher.Event) {
		switch ev.Kind {
		case flasher.EventChunkWritten:
			bar.Set(ev.BytesWritten)
		case flasher.EventUploadComplete:
			bar.Finish()
			fmt.Println()
			logSink(ev)
		default:
			logSink(ev)
		}
	}
}
