// Package config provides configuration loading for nanostore tools.
//
// Configuration is read from nanostore.json or nanostore.yaml in the working
// directory, then overridden by NANOSTORE_* environment variables (a .env
// file is loaded first when present).
//
// # Configuration File Structure
//
//	{
//	  "engine": {
//	    "kind": "sqlite",
//	    "path": "data/state.db",
//	    "namespace": "app:",
//	    "instrument": true
//	  },
//	  "relay": {
//	    "addr": ":7070",
//	    "url": "ws://localhost:7070/ws",
//	    "pollInterval": "500ms"
//	  },
//	  "metrics": {
//	    "namespace": "nanostore"
//	  },
//	  "log": {
//	    "level": "info",
//	    "format": "text"
//	  }
//	}
//
// The same document in YAML uses identical field names.
//
// # Environment Variables
//
//	NANOSTORE_ENGINE          engine.kind (memory, file, sqlite, s3)
//	NANOSTORE_PATH            engine.path
//	NANOSTORE_NAMESPACE       engine.namespace
//	NANOSTORE_S3_BUCKET       engine.bucket
//	NANOSTORE_S3_PREFIX       engine.prefix
//	NANOSTORE_S3_REGION       engine.region
//	NANOSTORE_S3_ENDPOINT     engine.endpoint
//	NANOSTORE_RELAY_ADDR      relay.addr
//	NANOSTORE_RELAY_URL       relay.url
//	NANOSTORE_LOG_LEVEL       log.level
//	NANOSTORE_LOG_FORMAT      log.format
package config
