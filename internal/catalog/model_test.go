package catalog

import "testing"

func TestIsImageFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"Artist/Nina Simone/Pastel Blues/cover.jpg", true},
		{"Artist/Nina Simone/Pastel Blues/cover.JPG", true},
		{"Artist/Nina Simone/Pastel Blues/front.jpeg", true},
		{"Artist/Nina Simone/Pastel Blues/art.png", true},
		{"Artist/Nina Simone/Pastel Blues/art.webp", true},
		{"Artist/Nina Simone/Pastel Blues/Sinnerman.mp3", false},
		{"Artist/Nina Simone/Pastel Blues/notes.txt", false},
		{"Artist/Nina Simone/Pastel Blues/noextension", false},
	}

	for _, tt := range tests {
		if got := IsImageFile(tt.path); got != tt.want {
			t.Errorf("IsImageFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestSongNameFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"Artist/Nina Simone/Pastel Blues/Sinnerman.mp3", "Sinnerman"},
		{"Artist/Nina Simone/Pastel Blues/01 - Be My Husband.mp3", "01 - Be My Husband"},
		{"Sinnerman", "Sinnerman"},
	}

	for _, tt := range tests {
		if got := SongNameFromPath(tt.path); got != tt.want {
			t.Errorf("SongNameFromPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestIDBuilders(t *testing.T) {
	if got := AlbumID("Nina Simone", "Pastel Blues"); got != "Nina Simone_Pastel Blues" {
		t.Errorf("AlbumID = %q", got)
	}
	if got := SongID("Nina Simone", "Pastel Blues", "Sinnerman.mp3"); got != "Nina Simone_Pastel Blues_Sinnerman.mp3" {
		t.Errorf("SongID = %q", got)
	}
}
