// internal/app/store/metrics/metricsstore.go
package metricsstore

import (
	"context"
	"math"
	"sort"

	"github.com/dalemusser/homeready/internal/app/system/docstore"
	"github.com/dalemusser/homeready/internal/domain/models"
)

// RoomProgress is the checklist progress of one room.
type RoomProgress struct {
	RoomID  string `json:"roomId"`
	Name    string `json:"name"`
	Order   int    `json:"order"`
	Total   int    `json:"total"`
	Done    int    `json:"done"`
	Percent int    `json:"percent"`
}

// Progress is the checklist progress of a home and its rooms.
type Progress struct {
	HomeID  string         `json:"homeId"`
	Total   int            `json:"total"`
	Done    int            `json:"done"`
	Percent int            `json:"percent"`
	Rooms   []RoomProgress `json:"rooms"`
}

// FetchHomeProgress counts items and done items for the home and each of its
// rooms, listing rooms by order. Items whose room no longer exists count
// toward the home totals only.
func FetchHomeProgress(ctx context.Context, s docstore.Store, homeID string) (Progress, error) {
	out := Progress{HomeID: homeID, Rooms: []RoomProgress{}}

	var rooms []models.Room
	if err := s.Find(ctx, models.RoomsCollection, docstore.Where("homeId", homeID).Sort("order"), &rooms); err != nil {
		return out, err
	}
	sort.SliceStable(rooms, func(i, j int) bool { return rooms[i].Order < rooms[j].Order })

	var items []models.Item
	if err := s.Find(ctx, models.ItemsCollection, docstore.Where("homeId", homeID), &items); err != nil {
		return out, err
	}

	idx := make(map[string]int, len(rooms))
	for i, r := range rooms {
		idx[r.ID] = i
		out.Rooms = append(out.Rooms, RoomProgress{RoomID: r.ID, Name: r.Name, Order: r.Order})
	}
	for _, it := range items {
		out.Total++
		if it.Done {
			out.Done++
		}
		i, ok := idx[it.RoomID]
		if !ok {
			continue
		}
		out.Rooms[i].Total++
		if it.Done {
			out.Rooms[i].Done++
		}
	}

	out.Percent = percent(out.Done, out.Total)
	for i := range out.Rooms {
		out.Rooms[i].Percent = percent(out.Rooms[i].Done, out.Rooms[i].Total)
	}
	return out, nil
}

func percent(done, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(done) * 100 / float64(total)))
}
