package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"google.golang.org/grpc"

	iotGrpc "liyu1981.xyz/iwown-health-service/pkg/grpc"
	"liyu1981.xyz/iwown-health-service/pkg/models"
)

var maxDevices int = 1000
var httpHostPort string = "127.0.0.1:8000"
var grpcHostPort string = "127.0.0.1:8001"

var httpClient *resty.Client
var grpcClient *iotGrpc.DashboardClient

var rnd *rand.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
var rndMu sync.Mutex

var failures atomic.Int64

func main() {
	deviceIDs := make([]string, maxDevices)
	for i := 0; i < maxDevices; i++ {
		deviceIDs[i] = uuid.NewString()
	}
	fmt.Printf("generated %v device IDs\n", maxDevices)

	httpClient = resty.New().
		SetBaseURL(fmt.Sprintf("http://%s", httpHostPort)).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond)

	var health models.APIResponse
	resp, err := httpClient.R().SetResult(&health).Get("/health")
	if err != nil || resp.StatusCode() != 200 {
		log.Fatalf("HTTP server not available: %v", err)
	}
	fmt.Printf("http server verified: %s\n", health.Message)

	conn, err := grpc.Dial(grpcHostPort, grpc.WithInsecure())
	if err != nil {
		log.Fatal("Failed to connect to gRPC server:", err)
	}
	defer conn.Close()
	grpcClient = iotGrpc.NewDashboardClient(conn)

	fmt.Printf("gRPC server connected\n")

	startTime := time.Now()
	wg := sync.WaitGroup{}
	for i := 0; i < maxDevices; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			doActions(deviceIDs[i])
		}()
	}
	wg.Wait()
	usedTime := time.Since(startTime)

	actions := maxDevices * len(uploadActions)
	fmt.Printf(
		"\n\ruploads for %v devices: used time=%v seconds, throughput=%v upload/second, failures=%v\n",
		maxDevices, usedTime.Seconds(), float64(actions)/usedTime.Seconds(), failures.Load(),
	)

	printStats()
}

func randInt(n int) int {
	rndMu.Lock()
	defer rndMu.Unlock()
	return rnd.Intn(n)
}

func randBytes(n int) []byte {
	rndMu.Lock()
	defer rndMu.Unlock()
	b := make([]byte, n)
	rnd.Read(b)
	return b
}

type uploadAction struct {
	name string
	run  func(deviceID string) error
}

var uploadActions = []uploadAction{
	{"health", func(deviceID string) error {
		return postAck("/4g/pb/upload", deviceID, "application/octet-stream", randBytes(16+randInt(240)))
	}},
	{"alarm", func(deviceID string) error {
		alarmTypes := []string{"fall_detected", "low_battery", "heart_rate_high"}
		return postAck("/4g/alarm/upload", deviceID, "application/json", map[string]any{
			"alarm_type": alarmTypes[randInt(len(alarmTypes))],
		})
	}},
	{"sos", func(deviceID string) error {
		return postAck("/4g/call_log/upload", deviceID, "application/octet-stream", randBytes(8))
	}},
	{"device_info", func(deviceID string) error {
		return postAck("/4g/deviceinfo/upload", deviceID, "application/json", map[string]any{
			"battery":          randInt(101),
			"model":            "V8",
			"firmware_version": fmt.Sprintf("1.%d.%d", randInt(5), randInt(10)),
		})
	}},
	{"status", func(deviceID string) error {
		statuses := []string{"online", "offline"}
		return postAck("/4g/status/notify", deviceID, "application/json", map[string]any{
			"Status": statuses[randInt(len(statuses))],
		})
	}},
	{"sleep", func(deviceID string) error {
		var out models.SleepResponse
		resp, err := httpClient.R().
			SetHeader("DeviceId", deviceID).
			SetHeader("Content-Type", "application/json").
			SetBody(map[string]any{"score": 60 + randInt(40)}).
			SetResult(&out).
			Post("/4g/health/sleep")
		if err != nil {
			return err
		}
		if resp.StatusCode() != 200 || out.ReturnCode != 0 {
			return fmt.Errorf("sleep upload answered %d", resp.StatusCode())
		}
		return nil
	}},
}

func postAck(path, deviceID, contentType string, body any) error {
	resp, err := httpClient.R().
		SetHeader("DeviceId", deviceID).
		SetHeader("Content-Type", contentType).
		SetBody(body).
		Post(path)
	if err != nil {
		return err
	}
	if b := resp.Body(); len(b) != 1 || b[0] != 0x00 {
		return fmt.Errorf("%s answered %v", path, b)
	}
	return nil
}

func doActions(deviceID string) {
	order := make([]int, len(uploadActions))
	for i := range order {
		order[i] = i
	}
	rndMu.Lock()
	rnd.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	rndMu.Unlock()

	for _, idx := range order {
		action := uploadActions[idx]
		if err := action.run(deviceID); err != nil {
			failures.Add(1)
			fmt.Printf("\nerror: %s for device %v: %v\n", action.name, deviceID, err)
		}
		fmt.Printf("\rexecuted action %v for device %v", action.name, deviceID)
		time.Sleep(time.Duration(100+randInt(1000)) * time.Millisecond)
	}
}

func printStats() {
	var stats models.APIResponse
	resp, err := httpClient.R().SetResult(&stats).Get("/api/stats")
	if err != nil || resp.StatusCode() != 200 {
		fmt.Printf("stats over http failed: %v\n", err)
	} else {
		fmt.Printf("stats over http: %v\n", stats.Data)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	grpcStats, err := grpcClient.GetStats(ctx)
	if err != nil {
		fmt.Printf("stats over gRPC failed: %v\n", err)
		return
	}
	fmt.Printf("stats over gRPC: %v\n", grpcStats.AsMap()["data"])
}
