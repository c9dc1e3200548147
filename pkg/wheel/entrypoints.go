package wheel

import (
	"maps"
	"path"
	"slices"
	"strconv"
	"strings"
)

// entryPoint maps one npm bin command to a Python console script.
type entryPoint struct {
	Command string // name the shell sees
	Key     string // attribute of the generated module's entrypoints object
	Script  string // package-relative path of the JavaScript file
}

// entryPoints derives console scripts from a bin map. Commands are keyed by
// base name; Python keys are normalised and suffixed "_1", "_2"... on
// collision, in command order.
func entryPoints(bin map[string]string) []entryPoint {
	byCommand := map[string]string{}
	for _, cmd := range slices.Sorted(maps.Keys(bin)) {
		byCommand[path.Base(cmd)] = bin[cmd]
	}

	seen := map[string]bool{}
	var out []entryPoint
	for _, cmd := range slices.Sorted(maps.Keys(byCommand)) {
		key := pyKey(cmd, 0)
		for i := 1; seen[key]; i++ {
			key = pyKey(cmd, i)
		}
		seen[key] = true
		out = append(out, entryPoint{Command: cmd, Key: key, Script: byCommand[cmd]})
	}
	return out
}

func pyKey(cmd string, i int) string {
	k := strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(cmd), "_"), "_")
	switch {
	case k == "":
		k = "bin"
	case k[0] >= '0' && k[0] <= '9':
		k = "n" + k
	}
	if i == 0 {
		return k
	}
	return k + "_" + strconv.Itoa(i)
}

func entryPointsFile(module string, eps []entryPoint) []byte {
	ls := []string{"[console_scripts]"}
	for _, ep := range eps {
		ls = append(ls, ep.Command+"="+module+":entrypoints."+ep.Key)
	}
	return lines(ls...)
}

// initFile is the generated module's __init__.py. The npym runtime locates
// the package under node_modules by its install path.
func initFile(installPath string, eps []entryPoint) []byte {
	scripts := make(pyObject, len(eps))
	for i, ep := range eps {
		scripts[i] = pyField{Key: ep.Key, Value: ep.Script}
	}
	var doc strings.Builder
	writePyJSON(&doc, pyObject{
		{Key: "package", Value: installPath},
		{Key: "scripts", Value: scripts},
	})
	return lines(
		"from npym import EntryPoints",
		"entrypoints = EntryPoints.from_json("+pyStringLiteral(doc.String())+")",
	)
}

// mainFile makes a single-command package runnable with "python -m".
func mainFile(module string, ep entryPoint) []byte {
	return lines(
		"from "+module+" import entrypoints",
		"entrypoints."+ep.Key+"()",
	)
}
