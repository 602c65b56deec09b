// Package repositories implements hyde's persistence.
//
// Key Implementations:
//   - [PlaylistStore] : playlists held in memory and persisted as one JSON document, rewritten atomically on every
//     mutation under a single lock
//   - [SearchCacheRepository] : SQLite-backed second level of the search result cache
//
// The playlist document is a JSON object keyed by playlist name:
//
//	{
//	  "Road Trip": {
//	    "name": "Road Trip",
//	    "tracks": [ ... ],
//	    "created_at": 1718000000.123,
//	    "cover": "https://img.youtube.com/vi/<id>/hqdefault.jpg"
//	  }
//	}
//
// A file that cannot be parsed is moved aside to "<path>.corrupt-<unix>" and the store starts empty, unless the store
// is opened in strict mode, in which case opening fails with [shared.ErrCorruptStore].
package repositories
