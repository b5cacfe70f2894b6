// Command hamqtt-demo announces a fake greenhouse controller to Home Assistant: a temperature sensor, a motion sensor,
// a pump switch and a grow light.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/nlowe/hamqtt"
	"github.com/nlowe/hamqtt/hass"
	"github.com/nlowe/hamqtt/internal/config"
	hamqttlog "github.com/nlowe/hamqtt/log"
	adapter "github.com/nlowe/hamqtt/mqtt/adapter/autopaho"
	"github.com/nlowe/hamqtt/platform"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := pflag.StringP("config", "c", "", "path to the config file")
	verbose := pflag.BoolP("verbose", "v", false, "log at debug level regardless of log_level")
	pflag.Parse()

	path, err := config.FindConfig(*configPath)
	if err != nil {
		return err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	level, _ := cfg.Level()
	if *verbose {
		level = slog.LevelDebug
	}
	hamqttlog.To(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	log := hamqttlog.ForComponent("demo")
	log.Info("Starting Up", slog.String("config", path))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	brokerURL, err := cfg.BrokerURL()
	if err != nil {
		return err
	}

	conn := &lazyConn{}
	device := cfg.ToDevice()
	client := hamqtt.NewClient(conn, conn, device, cfg.ClientOptions()...)

	pahoConfig := mqttConfig(cfg, brokerURL, client.RequestAnnounce)
	if will, ok := client.Will(); ok {
		adapter.WithWill(&pahoConfig, will)
	}

	g := newGreenhouse(client, device.IsSharedAvailabilityEnabled())

	disconnect, err := dialMQTT(ctx, conn, pahoConfig)
	if err != nil {
		return err
	}

	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		g.setAvailability(shutdownCtx, false)

		log.Info("Disconnecting from mqtt")
		if err := disconnect(shutdownCtx); err != nil {
			log.With(hamqttlog.Error(err)).Error("Failed to disconnect from mqtt")
		}
	}()

	if err = client.WatchHomeAssistant(ctx); err != nil {
		return fmt.Errorf("subscribe to home assistant status: %w", err)
	}

	awaitCtx, awaitCancel := context.WithTimeout(ctx, 30*time.Second)
	if err = client.AwaitHomeAssistant(awaitCtx); err != nil {
		log.With(hamqttlog.Error(err)).Warn("Home Assistant has not reported online yet, announcing anyway")
	}
	awaitCancel()

	g.setAvailability(ctx, true)
	g.tick(ctx)

	err = client.Run(ctx, cfg.PublishInterval, g.tick)
	log.Info("Goodbye!")

	return err
}

// greenhouse owns the demo entities and fakes their readings.
type greenhouse struct {
	client *hamqtt.Client
	shared bool

	temperature *platform.Sensor
	motion      *platform.BinarySensor
	pump        *platform.Switch
	light       *platform.Light

	celsius float64

	log *slog.Logger
}

func newGreenhouse(client *hamqtt.Client, shared bool) *greenhouse {
	g := &greenhouse{
		client:  client,
		shared:  shared,
		celsius: 21,
		log:     hamqttlog.ForComponent("greenhouse"),
	}

	g.temperature = platform.NewSensor(client, "temperature")
	g.temperature.SetName("Temperature")
	g.temperature.SetIcon("mdi:thermometer")
	g.temperature.DeviceClass = "temperature"
	g.temperature.StateClass = hass.StateClassMeasurement
	g.temperature.UnitOfMeasurement = "°C"
	g.temperature.SuggestedDisplayPrecision = 1
	g.temperature.Attributes = true
	g.temperature.Register()

	g.motion = platform.NewBinarySensor(client, "motion")
	g.motion.SetName("Motion")
	g.motion.DeviceClass = "motion"
	g.motion.OffDelay = 30 * time.Second
	g.motion.Register()

	g.pump = platform.NewSwitch(client, "pump", func(ctx context.Context, on bool) bool {
		g.log.InfoContext(ctx, "Home Assistant switched the pump", slog.Bool("on", on))
		return true
	})
	g.pump.SetName("Pump")
	g.pump.SetIcon("mdi:water-pump")
	g.pump.DeviceClass = "switch"
	g.pump.Register()

	g.light = platform.NewLight(client, "grow_light", hass.ColorModeTemperature, hass.ColorModeRGB)
	g.light.SetName("Grow Light")
	g.light.BrightnessScale = 100
	g.light.MinKelvin = 2000
	g.light.MaxKelvin = 9000
	g.light.Commands.Power = func(ctx context.Context, on bool) bool {
		g.log.InfoContext(ctx, "Home Assistant switched the grow light", slog.Bool("on", on))
		return true
	}
	g.light.Commands.RGB = func(ctx context.Context, rgb platform.RGB) bool {
		g.log.InfoContext(ctx, "Home Assistant set the grow light color", slog.Any("rgb", rgb))
		return true
	}
	g.light.Register()

	return g
}

func (g *greenhouse) setAvailability(ctx context.Context, online bool) {
	if g.shared {
		g.client.SetDeviceAvailability(ctx, online)
		return
	}

	for _, e := range []*hamqtt.BaseEntity{g.temperature.BaseEntity, g.motion.BaseEntity, g.pump.BaseEntity, g.light.BaseEntity} {
		e.SetAvailability(ctx, online)
	}
}

func (g *greenhouse) tick(ctx context.Context) {
	g.celsius += rand.Float64() - 0.5

	g.temperature.SetFloat(ctx, g.celsius)
	g.temperature.SetAttributes(ctx, map[string]any{"raw": g.celsius, "sampled_at": time.Now().UTC()})
	g.motion.SetState(ctx, rand.IntN(4) == 0)

	g.log.DebugContext(ctx, "Published readings", slog.Float64("celsius", g.celsius))
}
