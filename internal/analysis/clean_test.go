package analysis

import "testing"

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "La inflación baja al 2%.", "La inflación baja al 2%."},
		{"salutation line", "Estimados lectores:\nEl BCV interviene el mercado.", "El BCV interviene el mercado."},
		{"salutation inline", "Estimados, el BCV interviene el mercado.", "el BCV interviene el mercado."},
		{"filler opener", "Claro. Aquí tienes el análisis solicitado:\n\nLa producción sube.", "La producción sube."},
		{"sign off", "La producción sube.\n\nSaludos cordiales,\nEquipo", "La producción sube."},
		{"bold", "**Tendencia:** la producción sube.", "Tendencia: la producción sube."},
		{"keeps inner lines", "Primero.\n\n\n\nSegundo.\n- punto", "Primero.\n\nSegundo.\n- punto"},
		{"only boilerplate", "Estimados:\nAtentamente,", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Clean(tc.in); got != tc.want {
				t.Errorf("Clean(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
