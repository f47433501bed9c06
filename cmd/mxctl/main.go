// Command mxctl is the operator tool for mxprint printers: scan for devices,
// connect, read status, push an image and provision Wi-Fi credentials.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/rusq/osenv/v2"
	"tinygo.org/x/bluetooth"

	"github.com/mxsdk/mxprint"
	"github.com/mxsdk/mxprint/bitmap"
	"github.com/mxsdk/mxprint/fileman"
	"github.com/mxsdk/mxprint/prefs"
	"github.com/mxsdk/mxprint/rowdata"
)

var adapter = bluetooth.DefaultAdapter

type config struct {
	scanTimeout time.Duration
	mac         string
	imageFile   string
	dither      string
	threshold   uint
	compress    bool
	provision   bool
	ssid        string
	password    string
	cacheDir    string
	verbose     bool
}

var cliflags config

func init() {
	flag.DurationVar(&cliflags.scanTimeout, "scan", 10*time.Second, "scan `timeout`")
	flag.StringVar(&cliflags.mac, "mac", "", "MAC address of the printer to connect")
	flag.StringVar(&cliflags.imageFile, "i", "", "Image file to print (PNG or JPEG)")
	flag.StringVar(&cliflags.dither, "dither", "", fmt.Sprintf("Dithering kernel, one of: %v", bitmap.AllKernels()))
	flag.UintVar(&cliflags.threshold, "t", bitmap.DefaultThreshold, "binarization `threshold` (0-255)")
	flag.BoolVar(&cliflags.compress, "z", true, "run-length compress row data")
	flag.BoolVar(&cliflags.provision, "provision", false, "write Wi-Fi credentials to the connected printer")
	flag.StringVar(&cliflags.ssid, "ssid", osenv.Value("MXPRINT_SSID", ""), "network `name` for provisioning")
	flag.StringVar(&cliflags.password, "pw", osenv.Value("MXPRINT_PASSWORD", ""), "network password for provisioning")
	flag.StringVar(&cliflags.cacheDir, "cache", osenv.Value("MXPRINT_CACHE", ""), "cache `directory` (defaults to the user cache dir)")
	flag.BoolVar(&cliflags.verbose, "v", os.Getenv("DEBUG") != "", "Enable verbose logging")
}

func main() {
	flag.Parse()
	if cliflags.verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}
	if err := adapter.Enable(); err != nil {
		log.Fatalf("Failed to enable Bluetooth adapter: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cliflags); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg config) error {
	mgr := mxprint.NewConnectManager(mxprint.WithAdapter(adapter))
	defer mgr.Close()

	models, err := scan(ctx, mgr, cfg.scanTimeout)
	if err != nil {
		return err
	}
	if cfg.mac == "" {
		return nil // scan-only run
	}

	target, ok := models[strings.ToUpper(cfg.mac)]
	if !ok {
		return fmt.Errorf("printer %s not seen in scan", cfg.mac)
	}
	if err := connect(ctx, mgr, target); err != nil {
		return err
	}
	defer mgr.DisConnect()

	store, err := prefs.OpenDefault()
	if err != nil {
		slog.Warn("preferences unavailable", "error", err)
	} else {
		if err := store.SaveAutoConnectDevice(target.UUIDIdentifier, target.MAC, int(mxprint.ConnTypeBLE)); err != nil {
			slog.Warn("failed to save auto-connect device", "error", err)
		}
	}

	readStatus(mgr)

	if cfg.provision {
		return provision(ctx, mgr, target, cfg)
	}
	if cfg.imageFile != "" {
		return printImage(ctx, mgr, cfg)
	}
	return nil
}

func scan(ctx context.Context, mgr *mxprint.ConnectManager, timeout time.Duration) (map[string]*mxprint.ConnModel, error) {
	models := make(map[string]*mxprint.ConnModel)
	done := make(chan struct{})
	mgr.SetConnModelDiscoveryBlock(mxprint.ConnModelDiscoveryListener{
		OnConnModelDiscover: func(m *mxprint.ConnModel) {
			models[m.MAC] = m
		},
		OnConnModelStopDiscover: func() { close(done) },
	})
	pterm.Info.Printfln("Scanning for printers (%s)...", timeout)
	if err := mgr.DiscoverConnModel(timeout); err != nil {
		return nil, err
	}
	select {
	case <-done:
	case <-ctx.Done():
		mgr.CancelDiscover()
		return nil, ctx.Err()
	}

	data := pterm.TableData{{"Name", "MAC", "RSSI", "Links"}}
	for _, m := range models {
		var links []string
		for _, ct := range []mxprint.ConnType{mxprint.ConnTypeBLE, mxprint.ConnTypeWiFi, mxprint.ConnTypeAP} {
			if m.ContainsConnType(ct) {
				links = append(links, ct.String())
			}
		}
		data = append(data, []string{m.LocalName, m.MAC, fmt.Sprint(m.RSSI), strings.Join(links, "+")})
	}
	if len(models) == 0 {
		pterm.Warning.Println("No printers found")
	} else if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return nil, err
	}
	return models, nil
}

func connect(ctx context.Context, mgr *mxprint.ConnectManager, model *mxprint.ConnModel) error {
	result := make(chan error, 1)
	mgr.SetConnectionBlock(mxprint.DeviceConnectionListener{
		OnDeviceConnectSucceed: func() { result <- nil },
		OnDeviceConnectFail:    func() { result <- fmt.Errorf("connect failed") },
	})
	dev := model.Device(mxprint.ConnTypeBLE)
	if err := mgr.Connect(dev); err != nil {
		return err
	}
	select {
	case err := <-result:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		return ctx.Err()
	}
	pterm.Success.Printfln("Connected to %s", model.LocalName)
	return nil
}

func readStatus(mgr *mxprint.ConnectManager) {
	got := make(chan struct{}, 2)
	mgr.SetDeviceReadBlock(mxprint.DeviceReadListener{
		OnReadBattery: func(_ *mxprint.Device, level int) {
			pterm.Info.Printfln("Battery: %d%%", level)
			got <- struct{}{}
		},
		OnReadDeviceInfo: func(_ *mxprint.Device, id, name, mcuVersion, date string) {
			pterm.Info.Printfln("Device: %s %s (MCU %s, %s)", name, id, mcuVersion, date)
			got <- struct{}{}
		},
	})
	mgr.SendCommand(mxprint.OpReadBattery)
	mgr.SendCommand(mxprint.OpReadDeviceInfo)
	for range 2 {
		select {
		case <-got:
		case <-time.After(3 * time.Second):
			return
		}
	}
}

func printImage(ctx context.Context, mgr *mxprint.ConnectManager, cfg config) error {
	var fm *fileman.Manager
	var err error
	if cfg.cacheDir != "" {
		fm, err = fileman.New(cfg.cacheDir)
	} else {
		fm, err = fileman.Default()
	}
	if err != nil {
		return err
	}

	kernel, ok := bitmap.KernelByName(cfg.dither)
	if !ok {
		return fmt.Errorf("unknown dither kernel %q", cfg.dither)
	}
	mri := &rowdata.MultiRowImage{
		RowImages: []*rowdata.RowImage{{ImagePath: cfg.imageFile}},
	}
	data, err := bitmap.BitmapToMultiRowData(fm, mri, bitmap.Options{
		Threshold:       int(cfg.threshold),
		ClearBackground: true,
		Dithering:       true,
		Kernel:          kernel,
		Compress:        cfg.compress,
		Simulation:      true,
	})
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	mgr.SetDataProgressBlock(mxprint.DataProgressListener{
		OnDataProgress: func(size, progress float64, _ int, _, _ time.Time) {
			pterm.Info.Printfln("Transfer %3.0f%% of %.0f bytes", progress*100, size)
		},
		OnDataProgressFinish: func(_, _ float64, _ int, _, _ time.Time) { done <- nil },
		OnDataProgressError:  func(err error) { done <- err },
	})
	if err := mgr.SetWithSendMultiRowDataPacket(data, 0, mxprint.DataSendOnceContinuous); err != nil {
		return err
	}
	select {
	case err := <-done:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		mgr.CancelSendMultiRowDataPacket()
		return ctx.Err()
	}
	mgr.SendCommand(mxprint.OpPrintPicture)
	pterm.Success.Println("Print data sent")
	return nil
}

func provision(ctx context.Context, mgr *mxprint.ConnectManager, model *mxprint.ConnModel, cfg config) error {
	if cfg.ssid == "" {
		return fmt.Errorf("provisioning requires -ssid")
	}
	done := make(chan error, 1)
	mgr.SetDistributionNetworkBlock(mxprint.DistributionNetworkListener{
		OnDistributionNetworkSucceed: func(d *mxprint.Device) {
			pterm.Success.Printfln("Printer reachable at %s:%d", d.IP, d.Port)
			done <- nil
		},
		OnDistributionNetworkFail:    func() { done <- fmt.Errorf("provisioning failed") },
		OnDistributionNetworkTimeOut: func() { done <- fmt.Errorf("provisioning timed out") },
	})
	if err := mgr.DistributionNetwork(model, cfg.ssid, cfg.password, 30*time.Second); err != nil {
		return err
	}
	if store, err := prefs.OpenDefault(); err == nil {
		store.SaveWifiCredentials(cfg.ssid, cfg.password)
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
