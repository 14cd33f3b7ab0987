package scene

import (
	"os"

	"github.com/milk9111/cocoa2d/ecs"
	"github.com/milk9111/cocoa2d/ecs/component"
	"github.com/rotisserie/eris"
)

// Play snapshots the scene to a private temp file and starts simulating.
func (s *Scene) Play() error {
	if s.state == Playing {
		return ErrAlreadyPlaying
	}
	data, err := s.Serialize()
	if err != nil {
		return err
	}
	f, err := os.CreateTemp(s.settings.General.SnapshotDir, "cocoa-play-*.json")
	if err != nil {
		return eris.Wrap(err, "scene: create play snapshot")
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return eris.Wrap(err, "scene: write play snapshot")
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return eris.Wrap(err, "scene: write play snapshot")
	}

	// Edits made while stopped never reached the bodies, rebuild them from
	// the current components.
	s.physics.Destroy(s.world)
	if err := s.physics.Init(s.gravity()); err != nil {
		os.Remove(f.Name())
		return err
	}
	s.transforms.Update(s.world, 0)
	for e := range ecs.View(s.world, component.TransformComponent, component.Rigidbody2DComponent) {
		s.physics.AddEntity(s.world, e)
	}
	s.scripts.Restart()

	s.snapshot = f.Name()
	s.state = Playing
	s.log.Info().Str("snapshot", s.snapshot).Msg("play")
	return nil
}

// Stop tears down the simulated registry and restores the snapshot taken by
// Play. The snapshot file is removed once it has been reloaded. If the
// snapshot cannot be restored the scene keeps playing and the snapshot is
// kept.
func (s *Scene) Stop() error {
	if s.state != Playing {
		return ErrNotPlaying
	}

	data, err := os.ReadFile(s.snapshot)
	if err != nil {
		return eris.Wrapf(err, "scene: read play snapshot %s", s.snapshot)
	}
	w, err := s.decodeWorld(data)
	if err != nil {
		return eris.Wrapf(err, "scene: restore play snapshot %s", s.snapshot)
	}
	if played, err := s.Serialize(); err == nil {
		if patch, err := DiffSnapshots(data, played); err == nil {
			s.log.Info().Int("reverted_ops", len(patch)).Msg("stop")
		}
	}
	if err := s.adopt(w); err != nil {
		return err
	}
	s.state = Editing
	s.discardSnapshot()
	return nil
}

func (s *Scene) discardSnapshot() {
	if s.snapshot == "" {
		return
	}
	if err := os.Remove(s.snapshot); err != nil && !os.IsNotExist(err) {
		s.log.Warn().Err(err).Str("path", s.snapshot).Msg("remove play snapshot")
	}
	s.snapshot = ""
}

// HotReload swaps the script module for the build at tmpModule. The scene is
// saved, torn down, the module file replaced and the scene reloaded from the
// saved document. If the swap fails the scene is still reloaded and the swap
// error returned.
func (s *Scene) HotReload(tmpModule, module string) error {
	if _, err := os.Stat(tmpModule); err != nil {
		return eris.Wrapf(err, "scene: hot reload %s", tmpModule)
	}
	data, err := s.Serialize()
	if err != nil {
		return err
	}
	if s.path != "" {
		if err := writeFileAtomic(s.path, data); err != nil {
			return err
		}
	}
	w, err := s.decodeWorld(data)
	if err != nil {
		return err
	}

	s.FreeResources()
	swapErr := swapModule(tmpModule, module)
	if err := s.adopt(w); err != nil {
		return err
	}
	if swapErr != nil {
		s.log.Warn().Err(swapErr).Str("path", module).Msg("script module swap failed")
		return swapErr
	}
	s.log.Info().Str("path", module).Msg("script module reloaded")
	return nil
}

func swapModule(tmpModule, module string) error {
	if err := os.Remove(module); err != nil && !os.IsNotExist(err) {
		return eris.Wrapf(err, "scene: remove %s", module)
	}
	if err := os.Rename(tmpModule, module); err != nil {
		return eris.Wrapf(err, "scene: move %s to %s", tmpModule, module)
	}
	return nil
}
