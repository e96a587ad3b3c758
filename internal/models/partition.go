package models

import "time"

// Timing is the per-stage time of an operation in milliseconds.
type Timing struct {
	TokenizationMS float64 `json:"tokenization_ms"`
	InferenceMS    float64 `json:"inference_ms"`
	ClusteringMS   float64 `json:"clustering_ms"`
	TotalMS        float64 `json:"total_ms"`
}

// NewTiming converts stage durations to milliseconds.
func NewTiming(tokenization, inference, clustering time.Duration) *Timing {
	return &Timing{
		TokenizationMS: ms(tokenization),
		InferenceMS:    ms(inference),
		ClusteringMS:   ms(clustering),
		TotalMS:        ms(tokenization + inference + clustering),
	}
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

// PartitionResponse is the partition emitted by an operation. IDs and Sizes are the
// flat encoding; Clusters is the same partition as nested lists.
type PartitionResponse struct {
	IDs       []int   `json:"ids"`
	Sizes     []int   `json:"sizes"`
	Clusters  [][]int `json:"clusters"`
	Threshold float64 `json:"threshold"`
	Timing    *Timing `json:"timing,omitempty"`
	// Groups splits each cluster of Clusters, in the same order, by item kind.
	Groups []ClusterGroup `json:"groups,omitempty"`
	// Deferred is set when a removal opened a replace; no partition was emitted.
	Deferred bool `json:"deferred,omitempty"`
}

// ClusterGroup is one cluster split into its pages and notes, each ascending.
type ClusterGroup struct {
	Pages []int `json:"pages"`
	Notes []int `json:"notes"`
}

// GroupByKind splits every cluster by the kind kindOf reports for each id. Ids
// without a known kind count as pages.
func GroupByKind(clusters [][]int, kindOf func(id int) string) []ClusterGroup {
	groups := make([]ClusterGroup, len(clusters))
	for i, members := range clusters {
		g := ClusterGroup{Pages: []int{}, Notes: []int{}}
		for _, id := range members {
			if kindOf != nil && kindOf(id) == KindNote {
				g.Notes = append(g.Notes, id)
			} else {
				g.Pages = append(g.Pages, id)
			}
		}
		groups[i] = g
	}
	return groups
}

// SimilaritiesResponse maps id to id to cosine similarity.
type SimilaritiesResponse struct {
	Items        int                     `json:"items"`
	Similarities map[int]map[int]float64 `json:"similarities"`
}

// StatusResponse describes a running server.
type StatusResponse struct {
	InstanceID    string   `json:"instance_id"`
	State         string   `json:"state"`
	Items         int      `json:"items"`
	Clusters      int      `json:"clusters"`
	Threshold     float64  `json:"threshold"`
	TopK          int      `json:"top_k"`
	Dimensions    int      `json:"dimensions"`
	Replacing     []int    `json:"replacing"`
	Directories   []string `json:"directories,omitempty"`
	UptimeSeconds int64    `json:"uptime_seconds"`
}
