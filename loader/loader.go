// Package loader implements the assembly loader/initializer (spec §4.7):
// given a main assembly path, it produces the ordered set of
// metadata.Assembly values the rest of the engine resolves against
// (mscorlib first, synthesised in-process, then the main assembly, then
// anything it transitively references and can find), and runs every
// loaded type's .cctor exactly once, in that load order, before handing
// control to the entry point.
package loader

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/clrlite/clrlite/clrerror"
	"github.com/clrlite/clrlite/interp"
	"github.com/clrlite/clrlite/metadata"
	"github.com/clrlite/clrlite/pe"
	"github.com/clrlite/clrlite/resolve"
	"github.com/clrlite/clrlite/value"
	"go.uber.org/zap"
)

// Options configures a Loader, mirroring the teacher's pe.Options pattern:
// a plain struct of knobs, no flag/env parsing here (that belongs to
// cmd/clrlite).
type Options struct {
	// SearchDir is scanned for "<AssemblyRef>.exe" then ".dll", and after it
	// the working directory the same way, when the main assembly references
	// a module other than mscorlib. A referenced
	// assembly that cannot be found is logged and skipped, not fatal: most
	// of the engine's test corpus references only mscorlib.
	SearchDir string

	// VerifySignatures logs (never enforces; policy is a non-goal) whether
	// a loaded assembly's Authenticode signature, if present, parsed and
	// validated.
	VerifySignatures bool

	// Logger defaults to a no-op logger, matching pe.Options.
	Logger *zap.SugaredLogger
}

func (o Options) logger() *zap.SugaredLogger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop().Sugar()
}

// Loader owns the resolver every loaded assembly is registered into.
type Loader struct {
	opts     Options
	resolver *resolve.Resolver
	loaded   map[string]bool
}

// New returns a Loader that registers assemblies into the given resolver as
// it loads them.
func New(resolver *resolve.Resolver, opts Options) *Loader {
	return &Loader{opts: opts, resolver: resolver, loaded: make(map[string]bool)}
}

// LoadFile parses and builds the assembly at path, without registering or
// initializing it. Exposed so a caller (engine, or cmd/clrlite directly)
// can parse the main assembly before an Engine exists, matching the
// "construct with an already-parsed main assembly" engine contract.
func (l *Loader) LoadFile(path string) (*metadata.Assembly, error) {
	return l.loadFile(path, l.opts.logger())
}

// Load registers mscorlib and the given, already-built main assembly into
// the resolver, runs every type's .cctor exactly once in that order, and
// then walks main's AssemblyRef table transitively, loading and
// initializing anything found in SearchDir or the working directory the
// same way.
func (l *Loader) Load(main *metadata.Assembly, in *interp.Interpreter) error {
	log := l.opts.logger()

	mscorlib := metadata.BuildSynthetic()
	l.resolver.AddAssembly(mscorlib)
	l.loaded["mscorlib"] = true
	if err := l.runCctors(mscorlib, in); err != nil {
		return err
	}

	l.resolver.AddAssembly(main)
	l.loaded[strings.ToLower(main.Name)] = true
	if err := l.runCctors(main, in); err != nil {
		return err
	}

	return l.loadReferences(main, log, in)
}

// loadReferences walks an assembly's AssemblyRef table transitively,
// loading and registering anything findable in SearchDir or the working
// directory that isn't already loaded (spec §4.7's probing order). A missing
// reference is logged and left unmarked in l.loaded, per the teacher's "keep going, log, and record an anomaly"
// posture in pe.File.ParseDataDirectories, since most programs in this
// engine's scope reference only mscorlib.
func (l *Loader) loadReferences(asm *metadata.Assembly, log *zap.SugaredLogger, in *interp.Interpreter) error {
	for _, ref := range asm.AssemblyRefs {
		key := strings.ToLower(ref)
		if l.loaded[key] {
			continue
		}
		l.loaded[key] = true

		found := false
		candidates := []string{
			filepath.Join(l.opts.SearchDir, ref+".exe"),
			filepath.Join(l.opts.SearchDir, ref+".dll"),
			ref + ".exe",
			ref + ".dll",
		}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err != nil {
				continue
			}
			refAsm, err := l.loadFile(candidate, log)
			if err != nil {
				log.Warnw("failed to load referenced assembly", "name", ref, "path", candidate, "error", err)
				break
			}
			l.resolver.AddAssembly(refAsm)
			if err := l.runCctors(refAsm, in); err != nil {
				return err
			}
			if err := l.loadReferences(refAsm, log, in); err != nil {
				return err
			}
			found = true
			break
		}
		if !found {
			delete(l.loaded, key)
			log.Debugw("referenced assembly not found, skipping", "name", ref, "searchDir", l.opts.SearchDir)
		}
	}
	return nil
}

// loadFile parses a single PE+CLI file into a metadata.Assembly, logging
// (not enforcing) its Authenticode signature status when VerifySignatures
// is set and the file carries a Certificate directory.
func (l *Loader) loadFile(path string, log *zap.SugaredLogger) (*metadata.Assembly, error) {
	f, err := pe.New(path, &pe.Options{Logger: log})
	if err != nil {
		return nil, err
	}
	if err := f.Parse(); err != nil {
		return nil, err
	}

	if l.opts.VerifySignatures && f.Certificates.Header.Length > 0 {
		log.Infow("assembly carries an Authenticode signature",
			"path", path, "verified", f.Certificates.Verified, "signatureValid", f.Certificates.SignatureValid)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return metadata.Build(f, name)
}

// runCctors runs every type's .cctor exactly once, in TypeDef declaration
// order, per spec §4.7. A type with no .cctor is skipped; mscorlib's
// synthetic types never declare one.
func (l *Loader) runCctors(asm *metadata.Assembly, in *interp.Interpreter) error {
	for _, t := range asm.Types {
		cctor := t.MethodByName(".cctor")
		if cctor == nil || !cctor.IsStatic {
			continue
		}
		if _, err := in.Invoke(cctor, nil, value.NoneValue, false); err != nil {
			return clrerror.New(clrerror.Internal, "static constructor for %s failed: %v", t.FullName(), err)
		}
	}
	return nil
}
