package model

import "roombook/pkg/sanitizer"

type Room struct {
	Name     string `json:"name"`
	Floor    string `json:"floor"`
	Capacity int    `json:"capacity"`
}

// Label is the catalog key, e.g. "Annapurna - 1 Floor".
func (r Room) Label() string {
	return r.Name + " - " + r.Floor
}

// Catalog is the fixed, ordered set of bookable rooms.
type Catalog struct {
	rooms []Room
	index map[string]int
}

func NewCatalog(rooms []Room) *Catalog {
	c := &Catalog{
		rooms: append([]Room(nil), rooms...),
		index: make(map[string]int, len(rooms)),
	}
	for i, r := range c.rooms {
		c.index[sanitizer.NormalizeKey(r.Label())] = i
	}
	return c
}

func DefaultCatalog() *Catalog {
	return NewCatalog([]Room{
		{Name: "Himalaya", Floor: "Basement", Capacity: 20},
		{Name: "Neelgiri", Floor: "Ground Floor", Capacity: 7},
		{Name: "Aravali", Floor: "Ground Floor", Capacity: 7},
		{Name: "Kailash", Floor: "1 Floor", Capacity: 7},
		{Name: "Annapurna", Floor: "1 Floor", Capacity: 4},
		{Name: "Everest", Floor: "2 Floor", Capacity: 12},
		{Name: "Kanchenjunga", Floor: "2 Floor", Capacity: 7},
		{Name: "Shivalik", Floor: "3 Floor", Capacity: 4},
		{Name: "Trishul", Floor: "3 Floor", Capacity: 4},
		{Name: "Dhaulagiri", Floor: "3 Floor", Capacity: 7},
	})
}

func (c *Catalog) Rooms() []Room {
	return append([]Room(nil), c.rooms...)
}

// Lookup matches case-insensitively and ignores repeated whitespace.
func (c *Catalog) Lookup(label string) (Room, bool) {
	i, ok := c.index[sanitizer.NormalizeKey(label)]
	if !ok {
		return Room{}, false
	}
	return c.rooms[i], true
}
