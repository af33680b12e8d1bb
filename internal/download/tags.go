package download

import (
	id3v2 "github.com/bogem/id3v2/v2"
)

// writeTags stamps basic ID3 metadata on a completed offline file so
// the file stays identifiable outside the app. Tag failures are not
// fatal to the download.
func writeTags(path, songName, artist, albumName string) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return err
	}
	defer tag.Close()

	tag.SetTitle(songName)
	tag.SetArtist(artist)
	if albumName != "" {
		tag.SetAlbum(albumName)
	}
	return tag.Save()
}
