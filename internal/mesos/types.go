package mesos

import "strings"

type call struct {
	Type                         string                        `json:"type"`
	LaunchNestedContainerSession *launchNestedContainerSession `json:"launch_nested_container_session,omitempty"`
}

type launchNestedContainerSession struct {
	ContainerID ContainerID `json:"container_id"`
	Command     commandInfo `json:"command"`
}

// ContainerID is a Mesos container id. Nested containers carry their full
// ancestry in Parent, and agents match on the whole chain.
type ContainerID struct {
	Value  string       `json:"value"`
	Parent *ContainerID `json:"parent,omitempty"`
}

type commandInfo struct {
	Shell     bool     `json:"shell"`
	Value     string   `json:"value"`
	Arguments []string `json:"arguments,omitempty"`
}

type value struct {
	Value string `json:"value"`
}

type getTasksResponse struct {
	GetTasks struct {
		Tasks []task `json:"tasks"`
	} `json:"get_tasks"`
}

type task struct {
	Name     string   `json:"name"`
	TaskID   value    `json:"task_id"`
	AgentID  value    `json:"agent_id"`
	State    string   `json:"state"`
	Statuses []status `json:"statuses"`
}

type status struct {
	ContainerStatus *struct {
		ContainerID *ContainerID `json:"container_id"`
	} `json:"container_status,omitempty"`
}

func (t task) matches(name string) bool {
	return t.Name == name || t.TaskID.Value == name || strings.HasPrefix(t.TaskID.Value, name+".")
}

// containerID returns the container id, parents included, reported by the
// latest status carrying one.
func (t task) containerID() *ContainerID {
	for i := len(t.Statuses) - 1; i >= 0; i-- {
		cs := t.Statuses[i].ContainerStatus
		if cs != nil && cs.ContainerID != nil && cs.ContainerID.Value != "" {
			return cs.ContainerID
		}
	}
	return nil
}

// processIO is a record of a nested container session output stream.
// Data is base64 in JSON and decoded by encoding/json into raw bytes.
type processIO struct {
	Type string `json:"type"`
	Data *struct {
		Type string `json:"type"`
		Data []byte `json:"data"`
	} `json:"data,omitempty"`
}
