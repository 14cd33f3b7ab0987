package scene

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/milk9111/cocoa2d/ecs"
	"github.com/rotisserie/eris"
)

// Serialize encodes the registry as a scene document.
func (s *Scene) Serialize() ([]byte, error) {
	return encodeEntities(s.world, nil)
}

// Deserialize replaces the registry with doc. The document is decoded into a
// fresh registry first, so a malformed document leaves the scene untouched.
func (s *Scene) Deserialize(doc []byte) error {
	w, err := s.decodeWorld(doc)
	if err != nil {
		return err
	}
	return s.adopt(w)
}

func (s *Scene) decodeWorld(doc []byte) (*ecs.World, error) {
	w := newWorld()
	d := newDecoder(w, s.log, w.EnsureEntity)
	if err := d.decode(doc); err != nil {
		return nil, err
	}
	return w, nil
}

// Save writes the scene to path, or to the current scene path when path is
// empty. Saving while playing writes the simulated state.
func (s *Scene) Save(path string) error {
	path, err := s.resolvePath(path)
	if err != nil {
		return err
	}
	if err := s.saveTo(path); err != nil {
		return err
	}
	s.path = path
	s.log.Info().Str("path", path).Str("state", s.state.String()).Int("entities", s.world.Count()).Msg("scene saved")
	return nil
}

func (s *Scene) saveTo(path string) error {
	data, err := s.Serialize()
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

// Load replaces the scene with the document at path. Read and decode errors
// leave the current scene as it was.
func (s *Scene) Load(path string) error {
	path, err := s.resolvePath(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "scene: read %s", path)
	}
	if err := s.Deserialize(data); err != nil {
		return eris.Wrapf(err, "scene: load %s", path)
	}
	s.path = path
	s.log.Info().Str("path", path).Int("entities", s.world.Count()).Msg("scene loaded")
	return nil
}

func (s *Scene) resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) != "" {
		return path, nil
	}
	if strings.TrimSpace(s.path) != "" {
		return s.path, nil
	}
	return "", ErrNoScenePath
}

// writeFileAtomic writes through a sibling temp file so the previous file
// survives a failed write.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "scene: create %s", dir)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return eris.Wrapf(err, "scene: write %s", path)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return eris.Wrapf(err, "scene: write %s", path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return eris.Wrapf(err, "scene: write %s", path)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return eris.Wrapf(err, "scene: write %s", path)
	}
	return nil
}
