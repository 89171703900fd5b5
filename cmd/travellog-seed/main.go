// Command travellog-seed fills a running server with generated locations.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"math/rand"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	fcolor "github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var places = []struct {
	Title    string
	Lat, Lng float64
}{
	{"Kyoto", 35.0116, 135.7681},
	{"Reykjavik", 64.1466, -21.9426},
	{"Lisbon", 38.7223, -9.1393},
	{"Cusco", -13.5320, -71.9675},
	{"Queenstown", -45.0312, 168.6626},
	{"Marrakesh", 31.6295, -7.9811},
	{"Tromso", 69.6492, 18.9553},
	{"Hoi An", 15.8801, 108.3380},
}

type seedOptions struct {
	ServerURL   string
	AccessCode  string
	Total       int
	Workers     int
	ImageWidth  int
	ImageHeight int
}

type result struct {
	Title   string
	Success bool
	Error   error
}

func main() {
	opts := seedOptions{}

	rootCmd := &cobra.Command{
		Use:   "travellog-seed",
		Short: "Upload generated locations to a travellog server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.AccessCode == "" {
				opts.AccessCode = os.Getenv("ACCESS_CODE")
			}
			if opts.AccessCode == "" {
				return fmt.Errorf("access code is required: pass --code or set ACCESS_CODE")
			}
			return run(opts)
		},
	}

	rootCmd.Flags().StringVarP(&opts.ServerURL, "server", "s", "http://localhost:8080", "Server base URL")
	rootCmd.Flags().StringVar(&opts.AccessCode, "code", "", "Access code (default $ACCESS_CODE)")
	rootCmd.Flags().IntVarP(&opts.Total, "count", "n", 25, "Number of locations to create")
	rootCmd.Flags().IntVarP(&opts.Workers, "workers", "w", 4, "Concurrent uploads")
	rootCmd.Flags().IntVar(&opts.ImageWidth, "width", 2400, "Generated image width")
	rootCmd.Flags().IntVar(&opts.ImageHeight, "height", 1600, "Generated image height")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(opts seedOptions) error {
	pterm.DefaultHeader.WithFullWidth().WithBackgroundStyle(pterm.NewStyle(pterm.BgLightMagenta)).WithTextStyle(pterm.NewStyle(pterm.FgBlack)).Println("TRAVELLOG SEEDER")
	pterm.Println()

	data := pterm.TableData{
		{"Target Server", fcolor.New(fcolor.FgCyan).Sprint(opts.ServerURL)},
		{"Locations", fcolor.New(fcolor.FgYellow).Sprintf("%d", opts.Total)},
		{"Concurrency", fcolor.New(fcolor.FgYellow).Sprintf("%d workers", opts.Workers)},
		{"Image Size", fmt.Sprintf("%dx%d", opts.ImageWidth, opts.ImageHeight)},
	}
	_ = pterm.DefaultTable.WithBoxed().WithData(data).Render()
	pterm.Println()

	client := &http.Client{Timeout: 30 * time.Second}
	sessionID, err := login(client, opts)
	if err != nil {
		pterm.Error.Printf("Login failed: %v\n", err)
		return err
	}

	bar, _ := pterm.DefaultProgressbar.
		WithTotal(opts.Total).
		WithTitle("Seeding locations...").
		WithShowCount(true).
		WithShowElapsedTime(true).
		Start()

	var wg sync.WaitGroup
	jobs := make(chan int, opts.Total)
	results := make(chan result, opts.Total)

	for w := 1; w <= opts.Workers; w++ {
		wg.Add(1)
		go worker(client, opts, sessionID, jobs, results, &wg, bar)
	}

	for i := 1; i <= opts.Total; i++ {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	close(results)
	_, _ = bar.Stop()

	var failures []result
	successCount := 0
	for res := range results {
		if res.Success {
			successCount++
		} else {
			failures = append(failures, res)
		}
	}

	pterm.Println()
	if len(failures) == 0 {
		pterm.DefaultSection.WithStyle(pterm.NewStyle(pterm.FgGreen)).Println("SEEDING COMPLETED SUCCESSFULLY")
		pterm.Info.Printf("Created %d locations.\n", successCount)
		return nil
	}

	pterm.DefaultSection.WithStyle(pterm.NewStyle(pterm.FgYellow)).Println("COMPLETED WITH ERRORS")
	pterm.Info.Printf("Success: %d | Failed: %d\n", successCount, len(failures))
	pterm.Println()
	pterm.Error.Println("Failure Report:")
	for _, f := range failures {
		fmt.Printf(" - %s: %v\n", fcolor.RedString(f.Title), f.Error)
	}
	return fmt.Errorf("%d uploads failed", len(failures))
}

func login(client *http.Client, opts seedOptions) (string, error) {
	body, _ := json.Marshal(map[string]string{"accessCode": opts.AccessCode})
	resp, err := client.Post(opts.ServerURL+"/api/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		Success   bool   `json:"success"`
		SessionID string `json:"sessionId"`
		Message   string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	if !out.Success {
		return "", fmt.Errorf("%s", out.Message)
	}
	return out.SessionID, nil
}

func worker(client *http.Client, opts seedOptions, sessionID string, jobs <-chan int, results chan<- result, wg *sync.WaitGroup, bar *pterm.ProgressbarPrinter) {
	defer wg.Done()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for j := range jobs {
		place := places[rng.Intn(len(places))]
		title := fmt.Sprintf("%s #%d", place.Title, j)

		img, err := generatePhoto(rng, opts.ImageWidth, opts.ImageHeight)
		if err != nil {
			results <- result{Title: title, Error: fmt.Errorf("generate image: %w", err)}
			bar.Increment()
			continue
		}

		// Jitter so markers do not stack on one point.
		lat := place.Lat + (rng.Float64()-0.5)*0.1
		lng := place.Lng + (rng.Float64()-0.5)*0.1

		if err := upload(client, opts.ServerURL, sessionID, title, lat, lng, img); err != nil {
			results <- result{Title: title, Error: err}
		} else {
			results <- result{Title: title, Success: true}
		}
		bar.Increment()
	}
}

// generatePhoto renders a vertical gradient with a random tint.
func generatePhoto(rng *rand.Rand, w, h int) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	r, g, b := uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256))
	for y := 0; y < h; y++ {
		shade := uint8(255 * y / h)
		c := color.RGBA{r ^ shade, g, b ^ (255 - shade), 255}
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 92}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func upload(client *http.Client, serverURL, sessionID, title string, lat, lng float64, data []byte) error {
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	_ = writer.WriteField("title", title)
	_ = writer.WriteField("latitude", strconv.FormatFloat(lat, 'f', 6, 64))
	_ = writer.WriteField("longitude", strconv.FormatFloat(lng, 'f', 6, 64))
	_ = writer.WriteField("description", "Generated by travellog-seed")
	part, err := writer.CreateFormFile("image", "seed.jpg")
	if err != nil {
		return err
	}
	part.Write(data)
	writer.Close()

	req, err := http.NewRequest(http.MethodPost, serverURL+"/api/locations", body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Session-ID", sessionID)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("server rejected: %d", resp.StatusCode)
	}
	return nil
}
