package text

// Deltas describe a change by index in the visible text. They are what a
// local editor applies after a remote span operation lands.

type INSDelta struct {
	Index   int         `json:"index"`
	Content *INSContent `json:"content"`
}

type DELDelta struct {
	Index  int `json:"index"`
	Length int `json:"length"`
}

type FMTDelta struct {
	Index      int        `json:"index"`
	Attributes Attributes `json:"attributes"`
}

type MODDelta struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}
