package protocol

// ==================== EVENTS ====================

// ServerArenaEvent is pushed by the server and is never a reply.
type ServerArenaEvent struct {
	ArenaMessage ArenaMessage `json:"arena_message"`
}

// ==================== RESPONSES ====================

type GenericResponse struct {
	Success    bool   `json:"success"`
	FailReason string `json:"fail_reason"`
}

type ListArenasResponse struct {
	Success   bool     `json:"success"`
	ArenaList []string `json:"arena_list"`
}

type AgentInfo struct {
	Name string `json:"name"`
}

// ArenaInfoResponse describes the arena the client has joined. DateCreated
// is kept exactly as the server formatted it.
type ArenaInfoResponse struct {
	Success     bool        `json:"success"`
	Name        string      `json:"name"`
	Agents      []AgentInfo `json:"agents"`
	GameStarted bool        `json:"game_started"`
	DateCreated string      `json:"date_created"`
}

// ==================== ACTIONS ====================

type InitialMessageAction struct {
	Name string `json:"name"`
}

type JoinArenaAction struct {
	ArenaName string `json:"arena_name"`
}

type ServerArenaAction struct {
	ArenaMessage ArenaMessage `json:"arena_message"`
}

type ListArenasAction struct{}

type CreateArenaAction struct {
	ArenaName string `json:"arena_name"`
}

type ArenaInfoAction struct{}

func (ServerArenaEvent) MessageType() MessageType     { return ServerArenaEventType }
func (GenericResponse) MessageType() MessageType      { return GenericResponseType }
func (ListArenasResponse) MessageType() MessageType   { return ListArenasResponseType }
func (ArenaInfoResponse) MessageType() MessageType    { return ArenaInfoResponseType }
func (InitialMessageAction) MessageType() MessageType { return InitialMessageActionType }
func (JoinArenaAction) MessageType() MessageType      { return JoinArenaActionType }
func (ServerArenaAction) MessageType() MessageType    { return ServerArenaActionType }
func (ListArenasAction) MessageType() MessageType     { return ListArenasActionType }
func (CreateArenaAction) MessageType() MessageType    { return CreateArenaActionType }
func (ArenaInfoAction) MessageType() MessageType      { return ArenaInfoActionType }

func (ServerArenaEvent) isPayload()     {}
func (GenericResponse) isPayload()      {}
func (ListArenasResponse) isPayload()   {}
func (ArenaInfoResponse) isPayload()    {}
func (InitialMessageAction) isPayload() {}
func (JoinArenaAction) isPayload()      {}
func (ServerArenaAction) isPayload()    {}
func (ListArenasAction) isPayload()     {}
func (CreateArenaAction) isPayload()    {}
func (ArenaInfoAction) isPayload()      {}
