package sqlite

const schema = `
-- Task assignments
CREATE TABLE IF NOT EXISTS task_assignments (
    task_id TEXT PRIMARY KEY,
    worker_id TEXT NOT NULL,
    confidence REAL NOT NULL CHECK(confidence >= 0 AND confidence <= 1),
    estimated_completion DATETIME,
    reasoning TEXT NOT NULL DEFAULT '',
    alternatives TEXT NOT NULL DEFAULT '[]',
    dependencies_satisfied INTEGER NOT NULL DEFAULT 1,
    parallel_opportunities TEXT NOT NULL DEFAULT '[]',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_assignments_worker ON task_assignments(worker_id);

-- Quality gate executions
CREATE TABLE IF NOT EXISTS quality_gate_executions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    deliverable_id TEXT NOT NULL,
    stage TEXT NOT NULL,
    decision TEXT NOT NULL,
    score REAL NOT NULL CHECK(score >= 0 AND score <= 10),
    reasoning TEXT NOT NULL DEFAULT '',
    worker_id TEXT,
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_gates_deliverable ON quality_gate_executions(deliverable_id);
CREATE INDEX IF NOT EXISTS idx_gates_worker ON quality_gate_executions(worker_id);
CREATE INDEX IF NOT EXISTS idx_gates_created_at ON quality_gate_executions(created_at);

-- Escalation requests
CREATE TABLE IF NOT EXISTS escalation_requests (
    id TEXT PRIMARY KEY,
    deliverable_id TEXT NOT NULL,
    issue_description TEXT NOT NULL DEFAULT '',
    level TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    requested_by TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL,
    resolution_target DATETIME,
    expert_assigned TEXT,
    resolution_notes TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_escalations_status ON escalation_requests(status);
CREATE INDEX IF NOT EXISTS idx_escalations_target ON escalation_requests(resolution_target);
CREATE INDEX IF NOT EXISTS idx_escalations_deliverable ON escalation_requests(deliverable_id);

-- Workflow step executions
CREATE TABLE IF NOT EXISTS escalation_workflow_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    escalation_id TEXT NOT NULL,
    step_id TEXT NOT NULL,
    step_name TEXT NOT NULL DEFAULT '',
    required_expertise TEXT NOT NULL DEFAULT '[]',
    max_duration_hours INTEGER NOT NULL DEFAULT 0,
    executed_at DATETIME NOT NULL,
    FOREIGN KEY (escalation_id) REFERENCES escalation_requests(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_workflow_log_escalation ON escalation_workflow_log(escalation_id);

-- Escalation trigger audit trail
CREATE TABLE IF NOT EXISTS escalation_triggers (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    escalation_id TEXT NOT NULL,
    deliverable_id TEXT NOT NULL,
    trigger_type TEXT NOT NULL,
    level TEXT NOT NULL,
    detail TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_triggers_escalation ON escalation_triggers(escalation_id);

-- Expert assignment log
CREATE TABLE IF NOT EXISTS expert_assignments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    escalation_id TEXT NOT NULL,
    expert_id TEXT NOT NULL,
    assigned_at DATETIME NOT NULL,
    FOREIGN KEY (escalation_id) REFERENCES escalation_requests(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_expert_assignments_expert ON expert_assignments(expert_id);

-- Expert roster
CREATE TABLE IF NOT EXISTS experts (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    expertise_areas TEXT NOT NULL DEFAULT '[]',
    current_workload INTEGER NOT NULL DEFAULT 0 CHECK(current_workload >= 0),
    availability TEXT NOT NULL DEFAULT 'available',
    response_time_hours REAL NOT NULL DEFAULT 0,
    success_rate REAL NOT NULL DEFAULT 1.0 CHECK(success_rate >= 0 AND success_rate <= 1)
);

-- Decision log
CREATE TABLE IF NOT EXISTS decision_log (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL,
    context TEXT NOT NULL DEFAULT '{}',
    reasoning TEXT NOT NULL DEFAULT '',
    outcome TEXT NOT NULL DEFAULT '',
    confidence INTEGER NOT NULL CHECK(confidence >= 1 AND confidence <= 10),
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_type ON decision_log(type);
CREATE INDEX IF NOT EXISTS idx_decisions_created_at ON decision_log(created_at);

-- Quality benchmarks
CREATE TABLE IF NOT EXISTS quality_benchmarks (
    name TEXT PRIMARY KEY,
    value REAL NOT NULL CHECK(value >= 0),
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
