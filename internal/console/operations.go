package console

const appViewFields = `
    uuid
    name
    applications {
      id
      order
    }
    profile {
      id
      order
    }`

const userFields = `
    uuid
    username
    role
    preferences {
      defaultLang
      appViewId
      appView {` + appViewFields + `
      }
    }`

const identityFields = `
    uuid
    userId
    firstName
    lastName
    birthDate
    birthCity
    city
    country
    biologicalSex`

const usersQuery = `
query GetUsers {
  users {` + userFields + `
  }
}`

const userQuery = `
query GetUser($uuid: String!) {
  user(uuid: $uuid) {` + userFields + `
  }
}`

const createUserMutation = `
mutation CreateUser($input: CreateUserInput!) {
  createUser(createUserInput: $input) {
    uuid
    username
    role
    preferences {
      defaultLang
      appViewId
    }
  }
}`

const updateUserMutation = `
mutation UpdateUser($input: UpdateUserInput!) {
  updateUser(updateUserInput: $input) {
    uuid
    username
  }
}`

const deleteUserMutation = `
mutation DeleteUser($uuid: String!) {
  deleteUser(uuid: $uuid)
}`

const appViewsQuery = `
query GetAppViews {
  appViews {` + appViewFields + `
  }
}`

const appViewQuery = `
query GetAppView($uuid: String!) {
  appView(uuid: $uuid) {` + appViewFields + `
  }
}`

const createAppViewMutation = `
mutation CreateAppView($input: CreateAppViewInput!) {
  createAppView(input: $input) {` + appViewFields + `
  }
}`

const updateAppViewMutation = `
mutation UpdateAppView($uuid: String!, $input: UpdateAppViewInput!) {
  updateAppView(uuid: $uuid, input: $input) {` + appViewFields + `
  }
}`

const deleteAppViewMutation = `
mutation DeleteAppView($uuid: String!) {
  deleteAppView(uuid: $uuid)
}`

const assignAppViewMutation = `
mutation AssignAppViewToUsers($appViewId: String!, $users: [String!]!) {
  assignAppViewToUsers(appViewId: $appViewId, users: $users)
}`

const createIdentityMutation = `
mutation CreateIdentity($input: CreateIdentityInput!, $userId: String) {
  createIdentity(createIdentityInput: $input, userId: $userId) {` + identityFields + `
  }
}`

const updateIdentityMutation = `
mutation UpdateIdentity($uuid: String!, $input: UpdateIdentityInput!) {
  updateIdentity(uuid: $uuid, updateIdentityInput: $input) {` + identityFields + `
  }
}`

const deleteIdentityMutation = `
mutation DeleteIdentity($uuid: String!) {
  deleteIdentity(uuid: $uuid)
}`

// Operation names as sent in operationName.
const (
	OpGetUsers             = "GetUsers"
	OpGetUser              = "GetUser"
	OpCreateUser           = "CreateUser"
	OpUpdateUser           = "UpdateUser"
	OpDeleteUser           = "DeleteUser"
	OpGetAppViews          = "GetAppViews"
	OpGetAppView           = "GetAppView"
	OpCreateAppView        = "CreateAppView"
	OpUpdateAppView        = "UpdateAppView"
	OpDeleteAppView        = "DeleteAppView"
	OpAssignAppViewToUsers = "AssignAppViewToUsers"
	OpCreateIdentity       = "CreateIdentity"
	OpUpdateIdentity       = "UpdateIdentity"
	OpDeleteIdentity       = "DeleteIdentity"
)
