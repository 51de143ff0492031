// Package persistent provides stores whose values are written through to a
// storage engine and kept in sync with changes made by other processes.
//
// A persistent atom is backed by one key:
//
//	theme, err := persistent.NewAtom("theme", "light")
//	if err != nil { ... }
//	_ = theme.Set("dark") // the engine now holds theme=dark
//
// A persistent map is backed by every key sharing a prefix, one per field:
//
//	settings, err := persistent.NewMap("settings:", map[string]string{
//	    "lang":  "en",
//	    "units": "metric",
//	})
//	_ = settings.SetKey("lang", "de") // writes settings:lang=de
//
// Values that are not strings need a codec:
//
//	volume, err := persistent.NewAtom("volume", 0.8,
//	    persistent.WithCodec(persistent.JSON[float64]()))
//
// # Absent values
//
// Writing a nil pointer, map, slice or interface deletes the backing key.
// Use *string for string stores that must be able to hold "no value".
//
// # Cross-process changes
//
// Unless Listen(false) is given, stores subscribe to an events.Channel
// (events.Default() unless WithEvents is used) and apply changes reported
// for their key or prefix. A deletion reverts the atom, or the field, to
// the value it was constructed with. Applying a remote change does not
// write the engine again.
package persistent
