package entities

// Persona is one entry of the fixed voice catalog offered to the user. The
// VoiceName is the identifier the remote service understands; everything else
// is display metadata.
type Persona struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	VoiceName   string `json:"voice_name"`
}

var personas = []Persona{
	{ID: "1", Name: "Professional Female", Description: "Clear, warm, standard tone", VoiceName: "Kore"},
	{ID: "2", Name: "Deep Male", Description: "Authoritative, calm, steady", VoiceName: "Fenrir"},
	{ID: "3", Name: "Casual Male", Description: "Friendly, conversational", VoiceName: "Puck"},
	{ID: "4", Name: "Soft Female", Description: "Gentle, soothing", VoiceName: "Charon"},
}

// Personas returns the voice catalog.
func Personas() []Persona {
	out := make([]Persona, len(personas))
	copy(out, personas)
	return out
}

// FindPersona resolves a catalog id, falling back to the first persona when
// the id is unknown.
func FindPersona(id string) Persona {
	for _, p := range personas {
		if p.ID == id {
			return p
		}
	}
	return personas[0]
}
