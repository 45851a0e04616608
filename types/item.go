package types

// Item is a catalogue entry of the demo item list.
type Item struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}
