package tools

// ToolParameter describes a single tool parameter in the manifest.
type ToolParameter struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// ToolParameters is the parameter schema of a tool definition.
type ToolParameters struct {
	Properties map[string]ToolParameter `json:"properties"`
	Required   []string                 `json:"required"`
}

// ToolDefinition describes one chat tool for the manifest consumed by the
// assistant platform when the app is installed or updated.
type ToolDefinition struct {
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Endpoint      string         `json:"endpoint"`
	Method        string         `json:"method"`
	Parameters    ToolParameters `json:"parameters"`
	AuthRequired  bool           `json:"auth_required"`
	StatusMessage string         `json:"status_message"`
}

// Manifest is the document served at /.well-known/omi-tools.json.
type Manifest struct {
	Tools []ToolDefinition `json:"tools"`
}

// DefaultManifest returns the definitions for every tool the engine dispatches.
func DefaultManifest() Manifest {
	return Manifest{Tools: []ToolDefinition{
		{
			Name:        "search_songs",
			Description: "Search for songs on Spotify. Use this when the user wants to find songs, look up music, or search for tracks by name, artist, or album.",
			Endpoint:    "/tools/search_songs",
			Method:      "POST",
			Parameters: ToolParameters{
				Properties: map[string]ToolParameter{
					"query": {Type: "string", Description: "Search query - song name, artist name, or album name"},
					"limit": {Type: "integer", Description: "Maximum number of results to return (default: 5)"},
				},
				Required: []string{"query"},
			},
			AuthRequired:  true,
			StatusMessage: "Searching Spotify...",
		},
		{
			Name:        "add_to_playlist",
			Description: "Add a song to a Spotify playlist. Use this when the user wants to add a song or track to one of their playlists.",
			Endpoint:    "/tools/add_to_playlist",
			Method:      "POST",
			Parameters: ToolParameters{
				Properties: map[string]ToolParameter{
					"song_name":     {Type: "string", Description: "Name of the song to add"},
					"artist_name":   {Type: "string", Description: "Artist name (helps find the exact song)"},
					"playlist_name": {Type: "string", Description: "Name of the playlist to add to (uses default if not specified)"},
				},
				Required: []string{"song_name"},
			},
			AuthRequired:  true,
			StatusMessage: "Adding to playlist...",
		},
		{
			Name:        "create_playlist",
			Description: "Create a new Spotify playlist. Use this when the user wants to create or make a new playlist.",
			Endpoint:    "/tools/create_playlist",
			Method:      "POST",
			Parameters: ToolParameters{
				Properties: map[string]ToolParameter{
					"name":        {Type: "string", Description: "Name for the new playlist"},
					"description": {Type: "string", Description: "Description for the playlist"},
					"public":      {Type: "boolean", Description: "Whether the playlist should be public (default: false)"},
				},
				Required: []string{"name"},
			},
			AuthRequired:  true,
			StatusMessage: "Creating playlist...",
		},
		{
			Name:        "get_playlists",
			Description: "Get the user's Spotify playlists. Use this when the user wants to see their playlists or check what playlists they have.",
			Endpoint:    "/tools/get_playlists",
			Method:      "POST",
			Parameters: ToolParameters{
				Properties: map[string]ToolParameter{
					"limit": {Type: "integer", Description: "Maximum number of playlists to return (default: 10)"},
				},
				Required: []string{},
			},
			AuthRequired:  true,
			StatusMessage: "Getting your playlists...",
		},
		{
			Name:        "get_now_playing",
			Description: "Get the currently playing track on Spotify. Use this when the user asks what's playing or wants to know the current track.",
			Endpoint:    "/tools/get_now_playing",
			Method:      "POST",
			Parameters: ToolParameters{
				Properties: map[string]ToolParameter{},
				Required:   []string{},
			},
			AuthRequired:  true,
			StatusMessage: "Checking what's playing...",
		},
		{
			Name:        "control_playback",
			Description: "Control Spotify playback - play, pause, skip to next, or go to previous track. Use this when the user wants to control their music.",
			Endpoint:    "/tools/control_playback",
			Method:      "POST",
			Parameters: ToolParameters{
				Properties: map[string]ToolParameter{
					"action": {Type: "string", Description: "Playback action: 'play', 'pause', 'next', 'skip', or 'previous'"},
				},
				Required: []string{"action"},
			},
			AuthRequired:  true,
			StatusMessage: "Controlling playback...",
		},
		{
			Name:        "play_song",
			Description: "Search for and play a specific song on Spotify. Use this when the user wants to play a particular song.",
			Endpoint:    "/tools/play_song",
			Method:      "POST",
			Parameters: ToolParameters{
				Properties: map[string]ToolParameter{
					"song_name":   {Type: "string", Description: "Name of the song to play"},
					"artist_name": {Type: "string", Description: "Artist name (helps find the exact song)"},
				},
				Required: []string{"song_name"},
			},
			AuthRequired:  true,
			StatusMessage: "Playing song...",
		},
		{
			Name:        "get_recommendations",
			Description: "Get personalized song recommendations from Spotify. Use this when the user wants music suggestions or to discover new songs.",
			Endpoint:    "/tools/get_recommendations",
			Method:      "POST",
			Parameters: ToolParameters{
				Properties: map[string]ToolParameter{
					"limit": {Type: "integer", Description: "Number of recommendations to return (default: 5)"},
				},
				Required: []string{},
			},
			AuthRequired:  true,
			StatusMessage: "Getting recommendations...",
		},
	}}
}
