package store

// SetRename swaps the rename step of s for tests.
func SetRename(s *FileStore, fn func(oldpath, newpath string) error) {
	s.rename = fn
}
