package service

import "testing"

func TestAuthService_IsStudentEmail(t *testing.T) {
	svc := &AuthService{allowedDomains: []string{"edu", "edu.cn", "ac.uk"}}

	tests := []struct {
		email string
		want  bool
	}{
		{"alice@mit.edu", true},
		{"bob@tsinghua.edu.cn", true},
		{"carol@ox.ac.uk", true},
		{"dave@gmail.com", false},
		{"eve@edu.attacker.com", false},
		{"no-at-sign", false},
		{"trailing@", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := svc.isStudentEmail(tt.email); got != tt.want {
				t.Errorf("isStudentEmail(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}
