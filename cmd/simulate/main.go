// Command simulate reports randomized matches against a running service
// and then prints the resulting leaderboard, exercising the full intake
// path end to end.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
)

// Default simulation constants.
const (
	defaultMatches = 500
	defaultUsers   = 40
	defaultTopN    = 20
	defaultTimeout = 10 * time.Second
	settleDelay    = 500 * time.Millisecond
)

type matchRequest struct {
	MatchID string  `json:"match_id"`
	Season  int     `json:"season"`
	SideA   []int64 `json:"side_a"`
	SideB   []int64 `json:"side_b"`
	Winner  string  `json:"winner"`
}

type entry struct {
	Rank         int     `json:"rank"`
	SubjectID    string  `json:"subject_id"`
	Ordinal      float64 `json:"ordinal"`
	MatchesCount int     `json:"matches_count"`
}

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:9080", "Base URL of the service")
		matches = flag.Int("matches", defaultMatches, "Number of matches to report")
		users   = flag.Int("users", defaultUsers, "Size of the simulated player pool")
		seasons = flag.Int("season", 0, "Season ordinal to report into")
		topN    = flag.Int("top", defaultTopN, "Leaderboard entries to print")
		seed    = flag.Int64("seed", time.Now().UnixNano(), "PRNG seed")
	)
	flag.Parse()

	if *users < 4 {
		os.Stderr.WriteString("need at least 4 users\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	rng := rand.New(rand.NewSource(*seed))
	client := &http.Client{Timeout: defaultTimeout}

	// Give every player a hidden true skill; better players win more
	// often, so the final board should roughly sort by it.
	skill := make([]float64, *users)
	for i := range skill {
		skill[i] = rng.NormFloat64()
	}

	for i := 0; i < *matches; i++ {
		req := randomMatch(rng, skill, *seasons)
		if err := post(ctx, client, *baseURL+"/matches", req); err != nil {
			os.Stderr.WriteString("report failed: " + err.Error() + "\n")
			os.Exit(1)
		}
	}
	fmt.Printf("reported %d matches (seed %d)\n", *matches, *seed)

	// Let the intake queue drain before reading the board.
	time.Sleep(settleDelay)

	entries, err := leaderboard(ctx, client, *baseURL, *seasons, *topN)
	if err != nil {
		os.Stderr.WriteString("leaderboard failed: " + err.Error() + "\n")
		os.Exit(1)
	}

	prev := 0
	for _, e := range entries {
		fmt.Printf("%3d. user %-6s ordinal %8.3f matches %d\n",
			e.Rank, e.SubjectID, e.Ordinal, e.MatchesCount)
		if e.Rank != prev+1 {
			os.Stderr.WriteString("rank numbering is not dense\n")
			os.Exit(1)
		}
		prev = e.Rank
	}
}

// randomMatch builds a 1v1 or 2v2 between distinct players, with the
// winner biased by hidden skill.
func randomMatch(rng *rand.Rand, skill []float64, season int) matchRequest {
	size := 1
	if rng.Intn(2) == 0 {
		size = 2
	}

	picked := rng.Perm(len(skill))[:size*2]
	sideA := make([]int64, size)
	sideB := make([]int64, size)
	var skillA, skillB float64
	for i := 0; i < size; i++ {
		sideA[i] = int64(picked[i]) + 1
		skillA += skill[picked[i]]
		sideB[i] = int64(picked[size+i]) + 1
		skillB += skill[picked[size+i]]
	}

	winner := "A"
	edge := 1 / (1 + math.Exp(skillB-skillA))
	if rng.Float64() > edge {
		winner = "B"
	}

	return matchRequest{
		MatchID: uuid.NewString(),
		Season:  season,
		SideA:   sideA,
		SideB:   sideB,
		Winner:  winner,
	}
}

func post(ctx context.Context, client *http.Client, url string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func leaderboard(ctx context.Context, client *http.Client, baseURL string, season, topN int) ([]entry, error) {
	url := fmt.Sprintf("%s/leaderboard?season=%d&limit=%d", baseURL, season, topN)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var entries []entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, err
	}
	return entries, nil
}
