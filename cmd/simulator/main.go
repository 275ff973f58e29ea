package main

import (
	"context"
	"flag"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/wisecare-health/sos-gateway/pkg/config"
	"github.com/wisecare-health/sos-gateway/pkg/models"
	"github.com/wisecare-health/sos-gateway/pkg/timeplus"
)

// Simulator that stands in for the client devices: seeds the responder and
// user directories, then raises pending SOS alerts at a fixed interval.

var demoResponders = []models.Responder{
	{ID: "resp-emt-01", Name: "Jane Miller", Phone: "555-0100", Role: "EMT"},
	{ID: "resp-emt-02", Name: "Omar Haddad", Phone: "555-0101", Role: "EMT"},
	{ID: "resp-nurse-01", Name: "Priya Natarajan", Phone: "555-0102", Role: "Nurse"},
	{ID: "resp-doc-01", Name: "Li Wen", Phone: "555-0103", Role: "Doctor"},
}

var demoUsers = []models.User{
	{ID: "user-01", DisplayName: "Arthur Bennett", Email: "arthur@example.com", Phone: "555-0200"},
	{ID: "user-02", DisplayName: "Greta Olsen", Email: "greta@example.com", Phone: "555-0201"},
	{ID: "user-03", DisplayName: "Sam Okafor", Email: "sam@example.com", Phone: "555-0202"},
}

var demoDevices = []models.DeviceInfo{
	{Model: "Pixel 8", BatteryLevel: 72, OSVersion: "Android 15"},
	{Model: "iPhone 14", BatteryLevel: 18, OSVersion: "iOS 18.2"},
	{Model: "Galaxy Watch 6", BatteryLevel: 44, OSVersion: "Wear OS 5"},
}

func main() {
	configPath := flag.String("config", "", "path to config file")
	interval := flag.Duration("interval", 30*time.Second, "time between simulated alerts")
	count := flag.Int("count", 0, "number of alerts to raise (0 = run until interrupted)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	tpClient, err := timeplus.NewClient(&cfg.Timeplus)
	if err != nil {
		logrus.Fatalf("Failed to create Timeplus client: %v", err)
	}
	defer tpClient.Close()

	ctx := context.Background()
	if err := tpClient.SetupStreams(ctx); err != nil {
		logrus.Fatalf("Failed to set up streams: %v", err)
	}

	seedDirectories(ctx, tpClient)

	raised := 0
	for {
		raiseAlert(ctx, tpClient)
		raised++
		if *count > 0 && raised >= *count {
			logrus.Infof("Raised %d alerts, done", raised)
			return
		}
		time.Sleep(*interval)
	}
}

func seedDirectories(ctx context.Context, tpClient timeplus.TimeplusClient) {
	now := time.Now().UTC()

	for _, responder := range demoResponders {
		err := tpClient.InsertIntoStream(ctx, timeplus.RespondersStream,
			[]string{"id", "name", "phone", "role", "updated_at"},
			[]interface{}{responder.ID, responder.Name, responder.Phone, responder.Role, now})
		if err != nil {
			logrus.Errorf("Failed to seed responder %s: %v", responder.ID, err)
		}
	}

	for _, user := range demoUsers {
		err := tpClient.InsertIntoStream(ctx, timeplus.UsersStream,
			[]string{"id", "display_name", "email", "phone", "photo_url", "updated_at"},
			[]interface{}{user.ID, user.DisplayName, user.Email, user.Phone, nil, now})
		if err != nil {
			logrus.Errorf("Failed to seed user %s: %v", user.ID, err)
		}
	}

	logrus.Infof("Seeded %d responders and %d users", len(demoResponders), len(demoUsers))
}

func raiseAlert(ctx context.Context, tpClient timeplus.TimeplusClient) {
	now := time.Now().UTC()
	alertID := uuid.New().String()
	user := demoUsers[rand.Intn(len(demoUsers))]
	device := demoDevices[rand.Intn(len(demoDevices))]

	// Scatter locations around central Amsterdam
	latitude := 52.37 + rand.Float64()*0.02
	longitude := 4.89 + rand.Float64()*0.02

	err := tpClient.InsertIntoStream(ctx, timeplus.AlertsStream,
		[]string{
			"id", "user_id", "status", "created_at", "updated_at",
			"latitude", "longitude", "device_model", "battery_level", "os_version",
			"assigned_to", "responder_name", "responder_phone", "responder_role",
			"assigned_at", "resolved_at",
		},
		[]interface{}{
			alertID, user.ID, string(models.AlertStatusPending), now, now,
			latitude, longitude, device.Model, device.BatteryLevel, device.OSVersion,
			nil, nil, nil, nil,
			nil, nil,
		})
	if err != nil {
		logrus.Errorf("Failed to raise alert %s: %v", alertID, err)
		return
	}

	logrus.Infof("Raised pending alert %s for user %s", alertID, user.DisplayName)
}
