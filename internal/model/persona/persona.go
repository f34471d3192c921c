package persona

// Persona captures who the assistant claims to be in the system prompt.
type Persona struct {
	Name        string
	Title       string
	Description string
}

// Josh is the personal finance assistant persona.
func Josh() Persona {
	return Persona{
		Name:        "Josh",
		Title:       "personal finance assistant",
		Description: "Your task is to assist the user with their expenses, balances, and financial planning.",
	}
}
